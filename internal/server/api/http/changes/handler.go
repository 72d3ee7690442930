package changes

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"pinvault/internal/domain/record"
	"pinvault/internal/server/api/http/middleware/auth"
)

type Feed interface {
	Changes(ctx context.Context, userID int64, since time.Time) ([]record.ChangeEvent, error)
}

type Handler struct {
	feed       Feed
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(feed Feed, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		feed:       feed,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
}

func (h *Handler) list(ctx context.Context, input *listInput) (*listOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	events, err := h.feed.Changes(ctx, userID, input.Since)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to read change feed")
	}
	if events == nil {
		events = []record.ChangeEvent{}
	}

	return &listOutput{
		Body: listResponse{Changes: events},
	}, nil
}
