package cursor

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"pinvault/internal/domain/record"
	"pinvault/internal/server/api/http/middleware/auth"
)

type Repository interface {
	Get(ctx context.Context, userID int64) (record.SyncCursor, error)
	Put(ctx context.Context, userID int64, cursor record.SyncCursor) error
}

type Handler struct {
	repo       Repository
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(repo Repository, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		repo:       repo,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.getOp(), h.get)
	huma.Register(api, h.putOp(), h.put)
}

func (h *Handler) get(ctx context.Context, _ *struct{}) (*getOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	cursor, err := h.repo.Get(ctx, userID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get cursor")
	}

	return &getOutput{
		Body: getResponse{Cursor: cursor},
	}, nil
}

func (h *Handler) put(ctx context.Context, input *putInput) (*statusOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if err := h.repo.Put(ctx, userID, input.Body); err != nil {
		return nil, huma.Error500InternalServerError("failed to store cursor")
	}

	return &statusOutput{
		Body: statusResponse{Status: "Ok"},
	}, nil
}
