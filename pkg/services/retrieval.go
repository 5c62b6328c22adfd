package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/vectorstore"
	"github.com/ekaya-inc/ekam-query/pkg/llm"
	"github.com/ekaya-inc/ekam-query/pkg/models"
)

// DefaultTopK is the number of chunks returned per document search.
const DefaultTopK = 5

const unknownSourceFile = "unknown"

// RetrievalService finds document chunks similar to a query.
type RetrievalService interface {
	// Search fails open: any embedding, index or shape problem is logged and
	// an empty, non-nil slice is returned. topK <= 0 means DefaultTopK.
	Search(ctx context.Context, query string, topK int) []models.DocumentResult
}

type retrievalService struct {
	embedder llm.Embedder
	index    vectorstore.Index
	pool     *llm.WorkerPool
	logger   *zap.Logger
}

var _ RetrievalService = (*retrievalService)(nil)

// NewRetrievalService creates a retrieval service. Embedding calls run
// through pool.
func NewRetrievalService(embedder llm.Embedder, index vectorstore.Index, pool *llm.WorkerPool, logger *zap.Logger) RetrievalService {
	return &retrievalService{
		embedder: embedder,
		index:    index,
		pool:     pool,
		logger:   logger.Named("retrieval"),
	}
}

func (s *retrievalService) Search(ctx context.Context, query string, topK int) []models.DocumentResult {
	if topK <= 0 {
		topK = DefaultTopK
	}

	vectors, err := llm.Do(ctx, s.pool, func(ctx context.Context) ([][]float32, error) {
		return s.embedder.Embed(ctx, []string{query})
	})
	if err != nil {
		s.logger.Error("Failed to embed query", zap.Error(err))
		return []models.DocumentResult{}
	}
	if len(vectors) != 1 {
		s.logger.Error("Embedder returned unexpected vector count", zap.Int("count", len(vectors)))
		return []models.DocumentResult{}
	}

	result, err := s.index.Query(ctx, vectors[0], topK)
	if err != nil {
		s.logger.Error("Vector index query failed", zap.Error(err))
		return []models.DocumentResult{}
	}

	docs, err := toDocumentResults(result)
	if err != nil {
		s.logger.Error("Discarding malformed index result", zap.Error(err))
		return []models.DocumentResult{}
	}
	if len(docs) == 0 {
		s.logger.Debug("No relevant document chunks found")
	}
	return docs
}

// toDocumentResults validates the columnar index answer and flattens it.
func toDocumentResults(result *vectorstore.QueryResult) ([]models.DocumentResult, error) {
	if result == nil || len(result.IDs) == 0 {
		return []models.DocumentResult{}, nil
	}

	n := len(result.IDs)
	if result.Documents == nil || result.Metadatas == nil || result.Distances == nil {
		return nil, fmt.Errorf("result missing documents, metadatas or distances")
	}
	if len(result.Documents) != n || len(result.Metadatas) != n || len(result.Distances) != n {
		return nil, fmt.Errorf("inconsistent result lengths: ids=%d documents=%d metadatas=%d distances=%d",
			n, len(result.Documents), len(result.Metadatas), len(result.Distances))
	}

	docs := make([]models.DocumentResult, 0, n)
	for i := range n {
		meta := result.Metadatas[i]
		docs = append(docs, models.DocumentResult{
			SourceFile:      metadataString(meta, models.MetadataSourceFile, unknownSourceFile),
			ChunkIndex:      metadataInt(meta, models.MetadataChunkIndex),
			Content:         result.Documents[i],
			SimilarityScore: result.Distances[i],
		})
	}
	return docs, nil
}

func metadataString(meta map[string]any, key, fallback string) string {
	v, ok := meta[key]
	if !ok || v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// metadataInt accepts any numeric type; JSON round trips turn ints into float64.
func metadataInt(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
