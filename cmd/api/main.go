package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bimakw/ibswap-verifier/internal/app"
	"github.com/bimakw/ibswap-verifier/internal/config"
	"github.com/bimakw/ibswap-verifier/internal/logging"
	"github.com/bimakw/ibswap-verifier/internal/presentation/handlers"
)

const (
	version = "0.3.0"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (default .ibswap.yaml)")
	flag.Parse()

	bootLogger := logging.New("info", "text")
	if err := config.LoadEnv(); err != nil {
		bootLogger.WithError(err).Warn("Failed to load .env")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger.WithError(err).Fatal("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		bootLogger.WithError(err).Fatal("Invalid config")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to start")
	}
	defer a.Close()

	r := handlers.NewRouter(handlers.RouterDeps{
		Version:  version,
		Mode:     cfg.Mode,
		Tokens:   a.Tokens,
		Verifier: a.Verifier,
		Checks:   a.Checks,
		Logger:   logger,
	})

	server := &http.Server{
		Addr:         cfg.APIAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.WithFields(map[string]interface{}{
			"addr":    cfg.APIAddr,
			"version": version,
			"mode":    cfg.Mode,
		}).Info("Starting quote verifier API")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown error")
	}
	logger.Info("Server stopped")
}
