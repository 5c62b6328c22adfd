package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const sqlSystemPrompt = `You translate questions into SQL for the tables described in the prompt.
Answer with a single SQL statement and nothing else.`

// ChatSQLGenerator implements SQLGenerator with a chat model.
type ChatSQLGenerator struct {
	model  ChatModel
	pool   *WorkerPool
	logger *zap.Logger
}

var _ SQLGenerator = (*ChatSQLGenerator)(nil)

// NewSQLGenerator creates a generator whose calls run through pool.
func NewSQLGenerator(model ChatModel, pool *WorkerPool, logger *zap.Logger) *ChatSQLGenerator {
	return &ChatSQLGenerator{
		model:  model,
		pool:   pool,
		logger: logger.Named("sqlgen"),
	}
}

// Generate implements SQLGenerator. The candidate is returned unvalidated;
// gating it is the caller's job.
func (g *ChatSQLGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	raw, err := Do(ctx, g.pool, func(ctx context.Context) (string, error) {
		return g.model.Complete(ctx, sqlSystemPrompt, prompt)
	})
	if err != nil {
		return "", fmt.Errorf("generating sql: %w", err)
	}

	candidate := ExtractSQL(raw)
	g.logger.Debug("Generated SQL candidate", zap.String("model", g.model.Model()), zap.Int("length", len(candidate)))
	return candidate, nil
}
