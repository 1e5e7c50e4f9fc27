// Package api assembles the chi.Mux exposing every HTTP operation: huma
// drives the JSON request/response surface (auth, sync), while the raw
// websocket upgrade for /sync/ws is mounted directly on the mux since huma
// has no first-class support for a hijacked connection.
package api

import (
	authAPI "daylog/internal/app/server/api/http/auth"
	healthAPI "daylog/internal/app/server/api/http/health"
	"daylog/internal/app/server/api/http/middleware"
	"daylog/internal/app/server/api/http/middleware/auth"
	"daylog/internal/app/server/api/http/middleware/logger"
	syncAPI "daylog/internal/app/server/api/http/sync"
	"daylog/internal/app/server/config"
	"daylog/internal/domain/authtoken"
	"daylog/internal/domain/identity"
	"daylog/internal/domain/oauth"
	"daylog/internal/domain/sync"
	"daylog/internal/infrastructure/storage/postgres"
	"daylog/internal/infrastructure/ws"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

type Handlers struct {
	Health *healthAPI.Handler
	Auth   *authAPI.Handler
	Sync   *syncAPI.Handler
}

// New builds a *chi.Mux with every huma operation plus the raw /sync/ws
// upgrade route. verifier is the pluggable Google ID token check (spec.md
// §1 treats the OAuth provider as a black box); pass oauth.Stub{} where no
// real provider has been wired yet.
func New(storage *postgres.Storage, cfg *config.Config, verifier oauth.Verifier, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	humaCfg := huma.DefaultConfig("Daylog API", "1.0.0")
	humaCfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, humaCfg)

	tokens := authtoken.NewService(cfg.Auth.JWTSecret)
	hub := ws.NewHub(log)

	h := handlers(storage, cfg, verifier, tokens, hub, log)
	h.Health.SetupRoutes(API)
	h.Auth.SetupRoutes(API)
	h.Sync.SetupRoutes(API)

	mux.Get("/sync/ws", hub.Handler(tokens))

	return mux
}

func handlers(storage *postgres.Storage, cfg *config.Config, verifier oauth.Verifier, tokens authtoken.Servicer, hub *ws.Hub, log *slog.Logger) *Handlers {
	authMW := auth.New(tokens, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, middlewares.GetAllAndClear())

	identityRepo := postgres.NewIdentityRepository(storage.Pool(), log)
	identityService := identity.NewService(identityRepo, verifier, tokens, cfg.Auth.InternalAuthHash, log)
	publicMW := middleware.NewContainer()
	publicMW.Add(loggerMW.Middleware())
	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	authHandler := authAPI.NewHandler(identityService, log, publicMW.GetAllAndClear(), middlewares.GetAllAndClear())

	syncRepo := postgres.NewSyncRepository(storage.Pool(), log)
	syncService := sync.NewService(syncRepo, log, &sync.ServiceConfig{ConflictTTL: cfg.Sync.ConflictTTL}, hub)
	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	syncHandler := syncAPI.NewHandler(syncService, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		Auth:   authHandler,
		Sync:   syncHandler,
	}
}
