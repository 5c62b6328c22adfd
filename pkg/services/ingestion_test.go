package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/vectorstore"
	"github.com/ekaya-inc/ekam-query/pkg/llm"
	"github.com/ekaya-inc/ekam-query/pkg/models"
	"github.com/ekaya-inc/ekam-query/pkg/retry"
)

func fastRetry() *retry.Config {
	return &retry.Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

// countingIndex wraps a MemoryIndex and counts Add calls.
type countingIndex struct {
	*vectorstore.MemoryIndex
	mu   sync.Mutex
	adds int
}

func (c *countingIndex) Add(ctx context.Context, records []vectorstore.Record) error {
	c.mu.Lock()
	c.adds++
	c.mu.Unlock()
	return c.MemoryIndex.Add(ctx, records)
}

func TestIngestion_Ingest(t *testing.T) {
	ctx := context.Background()
	index := &countingIndex{MemoryIndex: vectorstore.NewMemoryIndex()}
	embedder := &llm.MockEmbedder{}
	svc := NewIngestionService(embedder, index, newTestPool(), IngestionOptions{BatchSize: 2, Retry: fastRetry()}, zap.NewNop())

	result, err := svc.Ingest(ctx, []models.DocumentChunks{
		{SourceFile: "handbook.txt", Chunks: []string{"PTO accrues monthly.", "  ", "Onboarding takes a week."}},
		{SourceFile: "", Chunks: []string{"orphan"}},
		{SourceFile: "empty.txt", Chunks: nil},
		{SourceFile: "travel.md", Chunks: []string{"Book flights through the portal."}},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalDocumentsIngested)
	assert.Equal(t, 3, result.TotalChunksCreated)
	assert.Equal(t, []string{"handbook.txt_0", "handbook.txt_1", "travel.md_0"}, result.DocumentIDs)
	assert.Equal(t, "Documents ingested successfully.", result.Message)

	assert.Equal(t, 1, index.adds, "all chunks are stored in one call")
	assert.Equal(t, 2, embedder.Calls(), "three chunks in batches of two")
	assert.ElementsMatch(t, []string{"PTO accrues monthly.", "Onboarding takes a week.", "Book flights through the portal."}, embedder.Texts)

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	hits, err := index.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	byID := map[string]map[string]any{}
	for i, id := range hits.IDs {
		byID[id] = hits.Metadatas[i]
	}
	assert.Equal(t, map[string]any{"source_file": "handbook.txt", "chunk_index": 1}, byID["handbook.txt_1"])
}

func TestIngestion_NothingToIngest(t *testing.T) {
	index := &countingIndex{MemoryIndex: vectorstore.NewMemoryIndex()}
	embedder := &llm.MockEmbedder{}
	svc := NewIngestionService(embedder, index, newTestPool(), IngestionOptions{}, zap.NewNop())

	result, err := svc.Ingest(context.Background(), []models.DocumentChunks{{SourceFile: "blank.txt", Chunks: []string{"", "\n"}}})
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalDocumentsIngested)
	assert.Equal(t, 0, result.TotalChunksCreated)
	assert.NotNil(t, result.DocumentIDs)
	assert.Equal(t, 0, embedder.Calls())
	assert.Equal(t, 0, index.adds)
}

func TestIngestion_RetriesTransientErrors(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	embedder := &llm.MockEmbedder{EmbedFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return nil, llm.NewError(llm.ErrorTypeEndpoint, "connection refused", true, nil)
		}
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{0, 1}
		}
		return out, nil
	}}
	index := &countingIndex{MemoryIndex: vectorstore.NewMemoryIndex()}
	svc := NewIngestionService(embedder, index, newTestPool(), IngestionOptions{BatchSize: 10, Retry: fastRetry()}, zap.NewNop())

	result, err := svc.Ingest(context.Background(), []models.DocumentChunks{{SourceFile: "a.txt", Chunks: []string{"x", "y"}}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalChunksCreated)
	assert.Equal(t, 2, attempts)
}

func TestIngestion_PermanentErrorStoresNothing(t *testing.T) {
	embedder := &llm.MockEmbedder{EmbedFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, llm.NewError(llm.ErrorTypeAuth, "invalid api key", false, nil)
	}}
	index := &countingIndex{MemoryIndex: vectorstore.NewMemoryIndex()}
	svc := NewIngestionService(embedder, index, newTestPool(), IngestionOptions{BatchSize: 1, Retry: fastRetry()}, zap.NewNop())

	_, err := svc.Ingest(context.Background(), []models.DocumentChunks{{SourceFile: "a.txt", Chunks: []string{"x", "y"}}})
	require.Error(t, err)
	assert.Equal(t, llm.ErrorTypeAuth, llm.GetErrorType(err))
	assert.Equal(t, 2, embedder.Calls(), "permanent errors are not retried")
	assert.Equal(t, 0, index.adds)
}

func TestIngestion_VectorCountMismatch(t *testing.T) {
	embedder := &llm.MockEmbedder{EmbedFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	}}
	index := &countingIndex{MemoryIndex: vectorstore.NewMemoryIndex()}
	svc := NewIngestionService(embedder, index, newTestPool(), IngestionOptions{BatchSize: 5, Retry: fastRetry()}, zap.NewNop())

	_, err := svc.Ingest(context.Background(), []models.DocumentChunks{{SourceFile: "a.txt", Chunks: []string{"x", "y"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 embeddings, got 1")
	assert.Equal(t, 0, index.adds)
}

func TestIngestion_IndexFailure(t *testing.T) {
	boom := errors.New("disk full")
	svc := NewIngestionService(&llm.MockEmbedder{}, &failingIndex{err: boom}, newTestPool(), IngestionOptions{}, zap.NewNop())

	_, err := svc.Ingest(context.Background(), []models.DocumentChunks{{SourceFile: "a.txt", Chunks: []string{"x"}}})
	assert.ErrorIs(t, err, boom)
}

type failingIndex struct {
	stubIndex
	err error
}

func (f *failingIndex) Add(context.Context, []vectorstore.Record) error { return f.err }
