package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/vectorstore"
	"github.com/ekaya-inc/ekam-query/pkg/llm"
	"github.com/ekaya-inc/ekam-query/pkg/models"
	"github.com/ekaya-inc/ekam-query/pkg/retry"
)

// IngestSuccessMessage is reported on every successful ingestion.
const IngestSuccessMessage = "Documents ingested successfully."

// DefaultEmbeddingBatchSize is used when no batch size is configured.
const DefaultEmbeddingBatchSize = 32

// IngestionService embeds pre-chunked documents into the vector index.
type IngestionService interface {
	// Ingest skips documents without a source name or without non-blank
	// chunks. All surviving chunks are embedded, then written to the index
	// in a single call; nothing is written if any batch fails.
	Ingest(ctx context.Context, docs []models.DocumentChunks) (*models.IngestResult, error)
}

// IngestionOptions tunes embedding batching.
type IngestionOptions struct {
	BatchSize int
	Retry     *retry.Config
}

type ingestionService struct {
	embedder llm.Embedder
	index    vectorstore.Index
	pool     *llm.WorkerPool
	opts     IngestionOptions
	logger   *zap.Logger
}

var _ IngestionService = (*ingestionService)(nil)

// NewIngestionService creates an ingestion service. Batches are embedded
// concurrently through pool and transient failures are retried.
func NewIngestionService(embedder llm.Embedder, index vectorstore.Index, pool *llm.WorkerPool, opts IngestionOptions, logger *zap.Logger) IngestionService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultEmbeddingBatchSize
	}
	if opts.Retry == nil {
		opts.Retry = retry.DefaultConfig()
	}
	return &ingestionService{
		embedder: embedder,
		index:    index,
		pool:     pool,
		opts:     opts,
		logger:   logger.Named("ingestion"),
	}
}

func (s *ingestionService) Ingest(ctx context.Context, docs []models.DocumentChunks) (*models.IngestResult, error) {
	var records []vectorstore.Record
	ids := []string{}
	ingested := 0

	for _, doc := range docs {
		if doc.SourceFile == "" {
			s.logger.Warn("Skipping document without source file")
			continue
		}

		chunks := nonBlank(doc.Chunks)
		if len(chunks) == 0 {
			s.logger.Warn("Skipping document without chunks", zap.String("source_file", doc.SourceFile))
			continue
		}

		for i, chunk := range chunks {
			id := doc.SourceFile + "_" + strconv.Itoa(i)
			records = append(records, vectorstore.Record{
				ID:       id,
				Document: chunk,
				Metadata: map[string]any{
					models.MetadataSourceFile: doc.SourceFile,
					models.MetadataChunkIndex: i,
				},
			})
			ids = append(ids, id)
		}
		ingested++
	}

	if len(records) > 0 {
		if err := s.embed(ctx, records); err != nil {
			return nil, err
		}
		if err := s.index.Add(ctx, records); err != nil {
			return nil, fmt.Errorf("store chunks: %w", err)
		}
		s.logger.Info("Ingested documents",
			zap.Int("documents", ingested),
			zap.Int("chunks", len(records)))
	}

	return &models.IngestResult{
		TotalDocumentsIngested: ingested,
		TotalChunksCreated:     len(records),
		DocumentIDs:            ids,
		Message:                IngestSuccessMessage,
	}, nil
}

// embed fills in Embedding on every record, one pool task per batch.
func (s *ingestionService) embed(ctx context.Context, records []vectorstore.Record) error {
	size := s.opts.BatchSize
	var items []llm.WorkItem[[][]float32]
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		texts := make([]string, 0, end-start)
		for _, r := range records[start:end] {
			texts = append(texts, r.Document)
		}

		items = append(items, llm.WorkItem[[][]float32]{
			ID: strconv.Itoa(start),
			Execute: func(ctx context.Context) ([][]float32, error) {
				return retry.DoWithResultIfRetryable(ctx, s.opts.Retry, func() ([][]float32, error) {
					return s.embedder.Embed(ctx, texts)
				})
			},
		})
	}

	results := llm.Process(ctx, s.pool, items, func(completed, total int) {
		s.logger.Debug("Embedding progress", zap.Int("completed", completed), zap.Int("total", total))
	})

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("batch at chunk %s: %w", res.ID, res.Err))
			continue
		}
		start, _ := strconv.Atoi(res.ID)
		end := min(start+size, len(records))
		if len(res.Result) != end-start {
			errs = append(errs, fmt.Errorf("batch at chunk %s: expected %d embeddings, got %d", res.ID, end-start, len(res.Result)))
			continue
		}
		for i, vec := range res.Result {
			records[start+i].Embedding = vec
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("embed chunks: %w", errors.Join(errs...))
	}
	return nil
}

func nonBlank(chunks []string) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
