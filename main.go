package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/app"
	"github.com/ekaya-inc/ekam-query/pkg/config"
	"github.com/ekaya-inc/ekam-query/pkg/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ekam-query: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(Version)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("datasource", cfg.Datasource.Type),
		zap.String("model_provider", cfg.Models.Provider),
		zap.String("embedding_provider", cfg.Models.EmbeddingProvider),
		zap.String("vector_backend", cfg.Vector.Backend),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("sql_guard_strict", cfg.SQLGuard.Strict),
		zap.Bool("mcp_enabled", cfg.MCP.Enabled))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Startup failed", zap.Error(err))
		return err
	}
	defer func() { _ = a.Close() }()

	return a.Serve(ctx)
}
