package handlers

import (
	"context"
	"net/http"
	"testing"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekam-query/pkg/database"
	"github.com/ekaya-inc/ekam-query/pkg/models"
	"github.com/ekaya-inc/ekam-query/pkg/services"
	"github.com/ekaya-inc/ekam-query/pkg/testhelpers"
)

type mockQueryEngine struct {
	askFunc    func(ctx context.Context, sess datasource.Session, query string) (*models.QueryResponse, error)
	schemaFunc func(ctx context.Context, catalog datasource.Catalog) (*models.SchemaDescription, error)
	askCalls   int
}

var _ services.QueryEngine = (*mockQueryEngine)(nil)

func (m *mockQueryEngine) Ask(ctx context.Context, sess datasource.Session, query string) (*models.QueryResponse, error) {
	m.askCalls++
	return m.askFunc(ctx, sess, query)
}

func (m *mockQueryEngine) Schema(ctx context.Context, catalog datasource.Catalog) (*models.SchemaDescription, error) {
	return m.schemaFunc(ctx, catalog)
}

type mockIngestionService struct {
	ingestFunc func(ctx context.Context, docs []models.DocumentChunks) (*models.IngestResult, error)
	calls      int
}

var _ services.IngestionService = (*mockIngestionService)(nil)

func (m *mockIngestionService) Ingest(ctx context.Context, docs []models.DocumentChunks) (*models.IngestResult, error) {
	m.calls++
	return m.ingestFunc(ctx, docs)
}

// sessionMiddleware wraps handlers with sessions on the SQLite employees fixture.
func sessionMiddleware(t *testing.T) func(http.HandlerFunc) http.HandlerFunc {
	t.Helper()
	ds := testhelpers.NewEmployeesDatasource(t)
	return database.WithSessionContext(ds, datasource.SessionOptions{ReadOnly: true}, zap.NewNop())
}
