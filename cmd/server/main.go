package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/docconvert/internal/config"
	"github.com/JonMunkholm/docconvert/internal/converters"
	"github.com/JonMunkholm/docconvert/internal/core"
	"github.com/JonMunkholm/docconvert/internal/logging"
	"github.com/JonMunkholm/docconvert/internal/store"
	"github.com/JonMunkholm/docconvert/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"convert_max_concurrent", cfg.Convert.MaxConcurrent,
		"convert_max_file_size", cfg.Convert.MaxFileSize,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"history_enabled", cfg.Database.Enabled(),
	)
	slog.Debug("effective configuration", "config", cfg.String())

	// Build the converter registry from the policy
	policy, err := converters.LoadPolicy(cfg.Convert.PolicyFile)
	if err != nil {
		slog.Error("failed to load converter policy", "error", err, "file", cfg.Convert.PolicyFile)
		os.Exit(1)
	}
	registry := core.NewRegistry()
	if err := converters.Register(registry, policy); err != nil {
		slog.Error("failed to register converters", "error", err)
		os.Exit(1)
	}
	slog.Info("converters registered", "pairs", registry.Len())

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	deps := web.Deps{Registry: registry}
	if cfg.Database.Enabled() {
		pool, err := store.Connect(jobCtx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		history := store.NewHistory(pool)
		if err := history.EnsureSchema(jobCtx); err != nil {
			slog.Error("failed to prepare history schema", "error", err)
			os.Exit(1)
		}
		deps.History = history

		go store.RunRetention(jobCtx, history, store.RetentionFrom(cfg.Database))
	}

	server := web.NewServer(cfg, deps)

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let running conversions finish streaming before closing listeners
		if err := server.WaitForConversions(shutdownCtx); err != nil {
			slog.Warn("conversions did not complete in time", "error", err)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}
