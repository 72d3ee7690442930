package record

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"pinvault/internal/domain/record"
	"pinvault/internal/server/api/http/middleware/auth"
)

// Repository is the storage slice this handler needs.
type Repository interface {
	List(ctx context.Context, userID int64) ([]record.CloudRecord, error)
	Get(ctx context.Context, userID, recordID int64) (*record.CloudRecord, error)
	Put(ctx context.Context, userID int64, rec record.CloudRecord) error
	Delete(ctx context.Context, userID, recordID int64) error
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
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.findOp(), h.find)
	huma.Register(api, h.putOp(), h.put)
	huma.Register(api, h.deleteOp(), h.delete)
}

func (h *Handler) list(ctx context.Context, _ *struct{}) (*listOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	records, err := h.repo.List(ctx, userID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list records")
	}
	if records == nil {
		records = []record.CloudRecord{}
	}

	return &listOutput{
		Body: listResponse{Records: records},
	}, nil
}

func (h *Handler) find(ctx context.Context, input *findInput) (*findOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	rec, err := h.repo.Get(ctx, userID, input.ID)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return nil, huma.Error404NotFound("record not found")
		}
		return nil, huma.Error500InternalServerError("failed to get record")
	}

	return &findOutput{Body: *rec}, nil
}

func (h *Handler) put(ctx context.Context, input *putInput) (*statusOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if input.Body.ID != input.ID {
		return nil, huma.Error422UnprocessableEntity("record id does not match path")
	}

	if err := h.repo.Put(ctx, userID, input.Body); err != nil {
		return nil, huma.Error500InternalServerError("failed to store record")
	}

	return &statusOutput{
		Body: statusResponse{Status: "Ok"},
	}, nil
}

func (h *Handler) delete(ctx context.Context, input *findInput) (*statusOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if err := h.repo.Delete(ctx, userID, input.ID); err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return nil, huma.Error404NotFound("record not found")
		}
		return nil, huma.Error500InternalServerError("failed to delete record")
	}

	return &statusOutput{
		Body: statusResponse{Status: "Ok"},
	}, nil
}
