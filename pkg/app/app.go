// Package app assembles the query gateway from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekam-query/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekam-query/pkg/adapters/datasource/mysql"
	_ "github.com/ekaya-inc/ekam-query/pkg/adapters/datasource/postgres"
	_ "github.com/ekaya-inc/ekam-query/pkg/adapters/datasource/sqlite"
	"github.com/ekaya-inc/ekam-query/pkg/adapters/vectorstore"
	"github.com/ekaya-inc/ekam-query/pkg/audit"
	"github.com/ekaya-inc/ekam-query/pkg/cache"
	"github.com/ekaya-inc/ekam-query/pkg/config"
	"github.com/ekaya-inc/ekam-query/pkg/database"
	"github.com/ekaya-inc/ekam-query/pkg/handlers"
	"github.com/ekaya-inc/ekam-query/pkg/llm"
	"github.com/ekaya-inc/ekam-query/pkg/logging"
	"github.com/ekaya-inc/ekam-query/pkg/mcp"
	"github.com/ekaya-inc/ekam-query/pkg/mcp/tools"
	"github.com/ekaya-inc/ekam-query/pkg/middleware"
	"github.com/ekaya-inc/ekam-query/pkg/retry"
	"github.com/ekaya-inc/ekam-query/pkg/services"
)

// shutdownTimeout bounds how long in-flight requests get to finish.
const shutdownTimeout = 30 * time.Second

// App holds the wired components. Close releases them in reverse order.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Datasource datasource.Datasource
	Engine     services.QueryEngine
	Ingestion  services.IngestionService

	closers []func() error
}

// Components lets callers replace the externally backed pieces. Nil fields
// are built from configuration.
type Components struct {
	Datasource   datasource.Datasource
	SQLModel     llm.ChatModel
	ScorerModel  llm.ChatModel
	Embedder     llm.Embedder
	Index        vectorstore.Index
	Cache        cache.Cache
	StartupRetry *retry.Config
}

// New builds the application from cfg.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	return NewWithComponents(ctx, cfg, logger, Components{})
}

// NewWithComponents builds the application, using any components supplied in c.
func NewWithComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, c Components) (a *App, err error) {
	a = &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	ds := c.Datasource
	if ds == nil {
		ds, err = datasource.Open(ctx, connectionConfig(&cfg.Datasource), logger)
		if err != nil {
			return nil, fmt.Errorf("open datasource: %w", err)
		}
		a.closers = append(a.closers, ds.Close)
	}
	a.Datasource = ds

	startupRetry := c.StartupRetry
	if startupRetry == nil {
		startupRetry = retry.StartupConfig()
	}
	if err := database.PingWithRetry(ctx, ds, startupRetry, logger); err != nil {
		return nil, fmt.Errorf("datasource unreachable: %w", err)
	}
	logger.Info("Datasource connected",
		zap.String("type", ds.Type()),
		zap.String("host", cfg.Datasource.Host),
		zap.String("database", cfg.Datasource.Database))

	sqlModel := c.SQLModel
	if sqlModel == nil {
		if sqlModel, err = llm.NewChatModel(ctx, &cfg.Models, cfg.Models.SQLModel, logger); err != nil {
			return nil, fmt.Errorf("create SQL model: %w", err)
		}
		a.addCloser(sqlModel)
	}
	scorerModel := c.ScorerModel
	if scorerModel == nil {
		if scorerModel, err = llm.NewChatModel(ctx, &cfg.Models, cfg.Models.ClassifierModel, logger); err != nil {
			return nil, fmt.Errorf("create classifier model: %w", err)
		}
		a.addCloser(scorerModel)
	}
	embedder := c.Embedder
	if embedder == nil {
		if embedder, err = llm.NewEmbedder(ctx, &cfg.Models, logger); err != nil {
			return nil, fmt.Errorf("create embedder: %w", err)
		}
		a.addCloser(embedder)
	}

	index := c.Index
	if index == nil {
		if index, err = vectorstore.New(cfg.Vector, logger); err != nil {
			return nil, fmt.Errorf("open vector store: %w", err)
		}
		a.closers = append(a.closers, index.Close)
	}

	queryCache := c.Cache
	if queryCache == nil {
		var closeCache func() error
		if queryCache, closeCache, err = cache.New(ctx, &cfg.Cache, logger); err != nil {
			return nil, fmt.Errorf("create query cache: %w", err)
		}
		a.closers = append(a.closers, closeCache)
	}

	poolCfg := llm.DefaultWorkerPoolConfig()
	poolCfg.MaxConcurrent = cfg.Models.MaxConcurrent
	pool := llm.NewWorkerPool(poolCfg, logger)
	auditor := audit.NewSecurityAuditor(logger)

	a.Engine = services.NewQueryEngine(services.QueryEngineDeps{
		Introspector: services.NewSchemaIntrospector(logger),
		Classifier:   services.NewQueryClassifier(llm.NewPromptScorer(scorerModel, pool, logger), logger),
		Guard: services.NewSQLGuard(llm.NewSQLGenerator(sqlModel, pool, logger), auditor,
			services.SQLGuardOptions{Strict: cfg.SQLGuard.Strict}, logger),
		Retrieval: services.NewRetrievalService(embedder, index, pool, logger),
		Cache:     queryCache,
		Auditor:   auditor,
		TopK:      cfg.Vector.TopK,
	}, logger)

	a.Ingestion = services.NewIngestionService(embedder, index, pool, services.IngestionOptions{
		BatchSize: cfg.Ingestion.EmbeddingBatchSize,
		Retry:     retry.DefaultConfig(),
	}, logger)

	return a, nil
}

func (a *App) addCloser(client any) {
	a.closers = append(a.closers, func() error { return llm.Close(client) })
}

// SessionOptions returns the options every request session is opened with.
func (a *App) SessionOptions() datasource.SessionOptions {
	return datasource.SessionOptions{ReadOnly: a.Config.Datasource.ReadOnlySessions}
}

// Handler returns the HTTP handler with every route and middleware installed.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	withSession := database.WithSessionContext(a.Datasource, a.SessionOptions(), a.Logger)

	handlers.NewHealthHandler(a.Config, a.Datasource, a.Logger).RegisterRoutes(mux)
	handlers.NewQueryHandler(a.Engine, a.Logger).RegisterRoutes(mux, withSession)
	handlers.NewSchemaHandler(a.Engine, a.Logger).RegisterRoutes(mux, withSession)
	handlers.NewIngestionHandler(a.Ingestion, a.Logger).RegisterRoutes(mux)

	if a.Config.MCP.Enabled {
		mcpServer := mcp.NewQueryServer(a.Config.ProjectName, &tools.Deps{
			Engine:         a.Engine,
			Datasource:     a.Datasource,
			SessionOptions: a.SessionOptions(),
			Version:        a.Config.Version,
			Logger:         a.Logger,
		})
		handlers.NewMCPHandler(mcpServer, a.Logger).RegisterRoutes(mux)
	}

	return middleware.Chain(mux,
		middleware.RequestID(),
		middleware.RequestLogger(a.Logger),
		middleware.CORS(a.Config.Server.CORSOrigins),
		middleware.Timeout(a.Config.Server.RequestTimeout),
	)
}

// Serve listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (a *App) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(a.Config.Server.BindAddr, a.Config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("Starting server",
			zap.String("addr", addr),
			zap.String("version", a.Config.Version),
			zap.String("env", a.Config.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.Logger.Info("Server stopped")
	return nil
}

// Close releases every component opened by New, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if len(errs) > 0 {
		a.Logger.Warn("Errors while closing components", zap.String("error", logging.SanitizeError(errors.Join(errs...))))
	}
	return errors.Join(errs...)
}

func connectionConfig(cfg *config.DatasourceConfig) datasource.ConnectionConfig {
	return datasource.ConnectionConfig{
		Type:     cfg.Type,
		Host:     config.ResolveHost(cfg.Host),
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Database,
		SSLMode:  cfg.SSLMode,
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
	}
}
