package changes

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "changes-list",
		Method:      http.MethodGet,
		Path:        "/api/changes",
		Summary:     "Change feed since a timestamp",
		Description: "Returns change events ordered by cloud_updated_at. The client listener polls this as its push-notification stand-in.",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
