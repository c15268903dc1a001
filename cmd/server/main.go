package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"identity-broker/internal/app"
	"identity-broker/internal/config"
	"identity-broker/internal/logger"
)

func main() {
	logger.Init()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", map[string]any{"error": err})
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", map[string]any{"error": err})
	}

	go func() {
		if err := application.Run(); err != nil {
			logger.Fatal("http server failed", map[string]any{"error": err})
		}
	}()

	logger.Info("identity-broker started", map[string]any{
		"port":      cfg.AppPort,
		"storage":   cfg.StorageDriver,
		"sessions":  cfg.SessionBackend,
		"providers": cfg.EnabledProviders(),
	})

	<-ctx.Done()

	logger.Info("shutdown signal received", nil)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", map[string]any{"error": err})
	}

	logger.Info("identity-broker stopped cleanly", nil)
}
