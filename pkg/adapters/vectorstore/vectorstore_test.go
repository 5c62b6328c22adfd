package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/config"
)

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 0}, b: []float32{2, 0}, want: 0},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 1},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: 2},
		{name: "length mismatch", a: []float32{1, 0}, b: []float32{1}, want: 2},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineDistance(tt.a, tt.b), 1e-9)
		})
	}
}

func sampleRecords() []Record {
	return []Record{
		{ID: "handbook.txt_0", Document: "Vacation policy", Metadata: map[string]any{"source_file": "handbook.txt", "chunk_index": 0}, Embedding: []float32{1, 0, 0}},
		{ID: "handbook.txt_1", Document: "Remote work", Metadata: map[string]any{"source_file": "handbook.txt", "chunk_index": 1}, Embedding: []float32{0.7, 0.7, 0}},
		{ID: "benefits.txt_0", Document: "Dental plan", Metadata: map[string]any{"source_file": "benefits.txt", "chunk_index": 0}, Embedding: []float32{0, 0, 1}},
	}
}

func openIndexes(t *testing.T) map[string]Index {
	t.Helper()
	sqliteIdx, err := OpenSQLite(filepath.Join(t.TempDir(), "vectors", "chunks.db"), "employee_documents", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteIdx.Close() })

	return map[string]Index{
		"memory": NewMemoryIndex(),
		"sqlite": sqliteIdx,
	}
}

func TestIndex_AddQueryCount(t *testing.T) {
	for name, idx := range openIndexes(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, idx.Add(ctx, sampleRecords()))

			count, err := idx.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, count)

			result, err := idx.Query(ctx, []float32{1, 0, 0}, 2)
			require.NoError(t, err)
			require.Len(t, result.IDs, 2)
			assert.Equal(t, []string{"handbook.txt_0", "handbook.txt_1"}, result.IDs)
			assert.Equal(t, "Vacation policy", result.Documents[0])
			assert.InDelta(t, 0.0, result.Distances[0], 1e-6)
			assert.Less(t, result.Distances[0], result.Distances[1])
			assert.Equal(t, "handbook.txt", result.Metadatas[0]["source_file"])
			assert.Len(t, result.Metadatas, 2)
		})
	}
}

func TestIndex_AddUpserts(t *testing.T) {
	for name, idx := range openIndexes(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, idx.Add(ctx, sampleRecords()))
			require.NoError(t, idx.Add(ctx, []Record{
				{ID: "benefits.txt_0", Document: "Vision plan", Embedding: []float32{0, 0, 1}},
			}))

			count, err := idx.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, count)

			result, err := idx.Query(ctx, []float32{0, 0, 1}, 1)
			require.NoError(t, err)
			assert.Equal(t, []string{"Vision plan"}, result.Documents)
		})
	}
}

func TestIndex_QueryEmpty(t *testing.T) {
	for name, idx := range openIndexes(t) {
		t.Run(name, func(t *testing.T) {
			result, err := idx.Query(context.Background(), []float32{1, 0, 0}, 5)
			require.NoError(t, err)
			assert.Empty(t, result.IDs)
			assert.Len(t, result.Distances, 0)
		})
	}
}

func TestSQLiteIndex_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chunks.db")

	idx, err := OpenSQLite(path, "employee_documents", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, sampleRecords()))
	require.NoError(t, idx.Close())

	reopened, err := OpenSQLite(path, "employee_documents", zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	result, err := reopened.Query(ctx, []float32{0, 0, 1}, 1)
	require.NoError(t, err)
	// JSON round trip turns integer metadata into float64.
	assert.Equal(t, float64(0), result.Metadatas[0]["chunk_index"])

	other, err := OpenSQLite(path, "other_collection", zap.NewNop())
	require.NoError(t, err)
	defer other.Close()
	count, err = other.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEmbeddingCodec(t *testing.T) {
	in := []float32{0.25, -1.5, 3}
	out, err := decodeEmbedding(encodeEmbedding(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeEmbedding([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	idx, err := New(config.VectorStoreConfig{Backend: "memory"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryIndex{}, idx)

	_, err = New(config.VectorStoreConfig{Backend: "chroma"}, zap.NewNop())
	assert.Error(t, err)
}
