package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/docstruct/internal/common"
	"github.com/joseph-ayodele/docstruct/internal/export"
	"github.com/joseph-ayodele/docstruct/internal/llm/openai"
	"github.com/joseph-ayodele/docstruct/internal/pipeline"
	"github.com/joseph-ayodele/docstruct/internal/repository"
	"github.com/joseph-ayodele/docstruct/internal/server"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// internal packages log via slog
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var store repository.SessionStore
	if cfg.Database.DSN != "" {
		pool, err := repository.OpenPool(ctx, cfg.Database, slogger)
		if err != nil {
			log.Fatalf("opening DB: %v", err)
		}
		defer pool.Close()
		if err := repository.HealthCheck(ctx, pool, slogger); err != nil {
			log.Fatalf("DB health failed: %v", err)
		}
		log.Infow("DB health OK")
		store, err = repository.NewPostgresStore(ctx, pool, slogger)
		if err != nil {
			log.Fatalf("preparing session store: %v", err)
		}
	} else {
		var err error
		store, err = repository.NewSQLiteStore(ctx, "docstruct.db", slogger)
		if err != nil {
			log.Fatalf("opening local session store: %v", err)
		}
		log.Infow("using local SQLite session store", "path", "docstruct.db")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warnf("closing session store: %v", err)
		}
	}()

	capability := openai.NewClient(openai.FromCommon(cfg.LLM), slogger)
	orch := pipeline.NewOrchestrator(capability, slogger,
		pipeline.WithExtractConcurrency(cfg.Pipeline.ExtractConcurrency))
	exporter := export.NewService(slogger)

	svc := server.NewService(orch, store, exporter, cfg.Server, logger)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: svc.Router(),
	}

	go func() {
		log.Infow("HTTP server listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf("shutdown: %v", err)
	}
	log.Infow("shutdown complete")
}
