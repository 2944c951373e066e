package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/boxflow/internal/api"
	"github.com/dgallion1/boxflow/internal/config"
	"github.com/dgallion1/boxflow/internal/metrics"
	"github.com/dgallion1/boxflow/internal/pipeline"
	"github.com/dgallion1/boxflow/internal/resultstore"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize result storage.
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("result store", "kind", cfg.ResultStore, "error", err)
		os.Exit(1)
	}
	m := metrics.New()

	// Initialize pipeline.
	orch, err := pipeline.NewOrchestrator(cfg, store, m, log)
	if err != nil {
		log.Error("invalid flow options", "error", err)
		os.Exit(1)
	}
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, m, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		store.Close()
	}()

	log.Info("starting boxflow", "port", cfg.Port, "result_store", cfg.ResultStore, "workers", cfg.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg config.Config) (resultstore.Store, error) {
	if cfg.ResultStore != "redis" {
		return resultstore.NewMemory(cfg.ResultTTL), nil
	}
	rs := resultstore.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, resultstore.WithTTL(cfg.ResultTTL))
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rs.Ping(pingCtx); err != nil {
		rs.Close()
		return nil, err
	}
	return rs, nil
}
