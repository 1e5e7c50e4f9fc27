package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daylog/internal/app/server/api"
	"daylog/internal/app/server/config"
	"daylog/internal/domain/oauth"
	"daylog/internal/infrastructure/cron"
	"daylog/internal/infrastructure/storage/postgres"
	"daylog/internal/utils/logger"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	storage, err := postgres.New(cfg)
	if err != nil {
		log.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer storage.Close()

	// No real Google ID token verifier is grounded in the example corpus;
	// production deployments must supply one (e.g. wiring a JWKS-backed
	// verifier) before enabling /auth/google.
	verifier := oauth.Stub{Err: oauth.ErrInvalidToken}

	syncRepo := postgres.NewSyncRepository(storage.Pool(), log)
	sweeper := cron.NewConflictSweeper(syncRepo, cfg.Sync.ConflictTTL, log)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	mux := api.New(storage, cfg, verifier, log)

	srv := &http.Server{
		Addr:    cfg.Server.RunAddress,
		Handler: mux,
	}

	go func() {
		log.Info("starting server", "address", cfg.Server.RunAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
