package cursor

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "cursor-get",
		Method:      http.MethodGet,
		Path:        "/api/cursor",
		Summary:     "Get the user's sync cursor",
		Description: "A user who has never synced gets the zero cursor.",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) putOp() huma.Operation {
	return huma.Operation{
		OperationID: "cursor-put",
		Method:      http.MethodPut,
		Path:        "/api/cursor",
		Summary:     "Store the user's sync cursor",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
