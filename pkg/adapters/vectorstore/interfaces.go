// Package vectorstore holds the document chunk index used for similarity search.
package vectorstore

import "context"

// Record is one embedded chunk.
type Record struct {
	ID        string
	Document  string
	Metadata  map[string]any
	Embedding []float32
}

// QueryResult is the columnar nearest-neighbour answer for a single query
// embedding. The slices are positionally aligned and ordered nearest first.
type QueryResult struct {
	IDs       []string
	Documents []string
	Metadatas []map[string]any
	Distances []float64
}

// Index stores chunk embeddings and answers top-N similarity queries.
// Distances are cosine distances: 0 for identical direction, larger is farther.
type Index interface {
	// Add upserts records by ID.
	Add(ctx context.Context, records []Record) error

	// Query returns up to n nearest records to embedding.
	Query(ctx context.Context, embedding []float32, n int) (*QueryResult, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	Close() error
}
