package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekam-query/pkg/audit"
	"github.com/ekaya-inc/ekam-query/pkg/cache"
	"github.com/ekaya-inc/ekam-query/pkg/logging"
	"github.com/ekaya-inc/ekam-query/pkg/models"
	sqlcheck "github.com/ekaya-inc/ekam-query/pkg/sql"
)

// QueryEngine answers natural-language questions from the database, the
// document index, or both.
type QueryEngine interface {
	// Ask classifies query and dispatches it. Schema introspection and
	// classification failures are returned as errors and nothing is cached;
	// SQL and retrieval failures are reported inside the response.
	Ask(ctx context.Context, session datasource.Session, query string) (*models.QueryResponse, error)

	// Schema returns the live schema of the queried database.
	Schema(ctx context.Context, catalog datasource.Catalog) (*models.SchemaDescription, error)
}

// QueryEngineDeps holds the collaborators of the engine.
type QueryEngineDeps struct {
	Introspector SchemaIntrospector
	Classifier   QueryClassifier
	Guard        SQLGuard
	Retrieval    RetrievalService
	Cache        cache.Cache
	Auditor      *audit.SecurityAuditor
	// TopK is the number of chunks per document search; 0 means DefaultTopK.
	TopK int
}

type queryEngine struct {
	deps   QueryEngineDeps
	now    func() time.Time
	logger *zap.Logger
}

var _ QueryEngine = (*queryEngine)(nil)

// NewQueryEngine creates the query orchestrator.
func NewQueryEngine(deps QueryEngineDeps, logger *zap.Logger) QueryEngine {
	if deps.TopK <= 0 {
		deps.TopK = DefaultTopK
	}
	return &queryEngine{
		deps:   deps,
		now:    time.Now,
		logger: logger.Named("query_engine"),
	}
}

func (e *queryEngine) Schema(ctx context.Context, catalog datasource.Catalog) (*models.SchemaDescription, error) {
	return e.deps.Introspector.Discover(ctx, catalog)
}

func (e *queryEngine) Ask(ctx context.Context, session datasource.Session, query string) (*models.QueryResponse, error) {
	start := e.now()
	logQuery := zap.String("query", logging.SanitizeQuery(query))

	if cached, ok := e.deps.Cache.Get(ctx, query); ok {
		e.logger.Info("Cache hit", logQuery)
		cached.PerformanceMetrics[models.MetricTotalTime] = elapsedSeconds(start, e.now())
		cached.CacheStatus = models.CacheHit
		return cached, nil
	}
	e.logger.Info("Cache miss", logQuery)

	e.screen(ctx, query)

	schema, err := e.deps.Introspector.Discover(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("introspect schema: %w", err)
	}
	schemaPrompt := BuildSchemaPrompt(schema)

	queryType, err := e.deps.Classifier.Classify(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("classify query: %w", err)
	}
	e.logger.Info("Query classified", logQuery, zap.String("query_type", string(queryType)))

	var sqlResult *models.SQLResult
	docs := []models.DocumentResult{}

	switch queryType {
	case models.QueryTypeSQL:
		sqlResult = e.deps.Guard.GenerateAndExecute(ctx, session, query, schemaPrompt)
	case models.QueryTypeDocument:
		docs = e.deps.Retrieval.Search(ctx, query, e.deps.TopK)
	case models.QueryTypeHybrid:
		// Both branches always run to completion; each reports its own failures.
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			sqlResult = e.deps.Guard.GenerateAndExecute(ctx, session, query, schemaPrompt)
		}()
		go func() {
			defer wg.Done()
			docs = e.deps.Retrieval.Search(ctx, query, e.deps.TopK)
		}()
		wg.Wait()
	default:
		e.logger.Warn("Unknown query type, falling back to document search", logQuery)
		docs = e.deps.Retrieval.Search(ctx, query, e.deps.TopK)
	}

	if docs == nil {
		docs = []models.DocumentResult{}
	}

	response := &models.QueryResponse{
		QueryType:       queryType,
		SQLResult:       sqlResult,
		DocumentResults: docs,
		PerformanceMetrics: map[string]float64{
			models.MetricTotalTime: elapsedSeconds(start, e.now()),
		},
		CacheStatus: models.CacheMiss,
	}

	e.deps.Cache.Set(ctx, query, response)
	return response, nil
}

// screen audits questions that look like injection payloads. They still run:
// generated SQL passes through the guard either way.
func (e *queryEngine) screen(ctx context.Context, query string) {
	if e.deps.Auditor == nil {
		return
	}
	if result := sqlcheck.CheckForInjection("query", query); result != nil {
		e.deps.Auditor.LogInjectionSuspect(ctx, audit.InjectionDetails{
			Query:       query,
			Fingerprint: result.Fingerprint,
		})
	}
}

func elapsedSeconds(start, end time.Time) float64 {
	return math.Round(end.Sub(start).Seconds()*100) / 100
}
