// Package api assembles the vaultd HTTP surface. The server is a plain
// encrypted document store: it never sees PINs, keys or plaintext, only
// ciphertext documents, tombstones and sync cursors.
package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	changesAPI "pinvault/internal/server/api/http/changes"
	cursorAPI "pinvault/internal/server/api/http/cursor"
	healthAPI "pinvault/internal/server/api/http/health"
	"pinvault/internal/server/api/http/middleware"
	"pinvault/internal/server/api/http/middleware/auth"
	"pinvault/internal/server/api/http/middleware/logger"
	recordAPI "pinvault/internal/server/api/http/record"
	"pinvault/internal/server/config"
	"pinvault/internal/server/storage/postgres"
)

type Handlers struct {
	Health  *healthAPI.Handler
	Record  *recordAPI.Handler
	Cursor  *cursorAPI.Handler
	Changes *changesAPI.Handler
}

// New builds the chi mux with every operation registered through huma.
func New(cfg *config.Config, storage *postgres.Storage, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	humaConfig := huma.DefaultConfig("Pinvault API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, humaConfig)

	h := handlers(cfg, storage, log)
	h.Health.SetupRoutes(API)
	h.Record.SetupRoutes(API)
	h.Cursor.SetupRoutes(API)
	h.Changes.SetupRoutes(API)

	return mux
}

func handlers(cfg *config.Config, storage *postgres.Storage, log *slog.Logger) *Handlers {
	verifier := auth.NewVerifier(cfg.Auth.TokenSecret)
	authMW := auth.New(verifier, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(storage, log, middlewares.GetAllAndClear())

	recordRepo := postgres.NewRecordRepository(storage.Pool(), log)
	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	recordHandler := recordAPI.NewHandler(recordRepo, log, middlewares.GetAllAndClear())

	cursorRepo := postgres.NewCursorRepository(storage.Pool(), log)
	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	cursorHandler := cursorAPI.NewHandler(cursorRepo, log, middlewares.GetAllAndClear())

	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	changesHandler := changesAPI.NewHandler(recordRepo, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:  healthHandler,
		Record:  recordHandler,
		Cursor:  cursorHandler,
		Changes: changesHandler,
	}
}
