// Package llm wraps the model providers behind the gateway: chat models used
// for SQL generation and zero-shot scoring, and embedders used for retrieval
// and ingestion.
package llm

import "context"

// ChatModel produces a single text completion for a system instruction and a
// user prompt.
type ChatModel interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

// Embedder turns texts into dense vectors. The result has one vector per
// input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// ZeroShotScorer scores a text independently against each candidate label.
// Scores are in [0,1] and need not sum to 1.
type ZeroShotScorer interface {
	Score(ctx context.Context, text string, labels []string) (map[string]float64, error)
}

// SQLGenerator turns a schema-annotated prompt into a SQL candidate.
type SQLGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
