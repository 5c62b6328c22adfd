package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testLabels = []string{"database query", "document search"}

func newTestPool() *WorkerPool {
	return NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 2}, zap.NewNop())
}

func TestPromptScorer_Score(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     map[string]float64
	}{
		{
			name:     "both labels",
			response: `{"database query": 0.8, "document search": 0.3}`,
			want:     map[string]float64{"database query": 0.8, "document search": 0.3},
		},
		{
			name:     "fenced with prose",
			response: "Sure.\n```json\n{\"database query\": 0.1, \"document search\": 0.9}\n```",
			want:     map[string]float64{"database query": 0.1, "document search": 0.9},
		},
		{
			name:     "case and clamping",
			response: `{"Database Query": 1.4, "document search": -0.2}`,
			want:     map[string]float64{"database query": 1, "document search": 0},
		},
		{
			name:     "missing label omitted",
			response: `{"document search": 0.7}`,
			want:     map[string]float64{"document search": 0.7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := NewMockChatModel(tt.response)
			scorer := NewPromptScorer(model, newTestPool(), zap.NewNop())

			got, err := scorer.Score(context.Background(), "How many people work in Sales?", testLabels)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, model.CompleteCalls)
			assert.Contains(t, model.LastPrompt, `["database query","document search"]`)
			assert.Contains(t, model.LastPrompt, "How many people work in Sales?")
		})
	}
}

func TestPromptScorer_UnparseableResponse(t *testing.T) {
	scorer := NewPromptScorer(NewMockChatModel("I think it is a database query."), newTestPool(), zap.NewNop())

	_, err := scorer.Score(context.Background(), "anything", testLabels)
	require.Error(t, err)
	assert.Equal(t, ErrorTypeResponse, GetErrorType(err))
}

func TestPromptScorer_ModelError(t *testing.T) {
	boom := errors.New("status code: 500")
	model := &MockChatModel{CompleteFunc: func(ctx context.Context, system, prompt string) (string, error) {
		return "", boom
	}}
	scorer := NewPromptScorer(model, newTestPool(), zap.NewNop())

	_, err := scorer.Score(context.Background(), "anything", testLabels)
	assert.ErrorIs(t, err, boom)
}

func TestSQLGenerator_Generate(t *testing.T) {
	model := NewMockChatModel("```sql\nSELECT name FROM employees\n```")
	gen := NewSQLGenerator(model, newTestPool(), zap.NewNop())

	sql, err := gen.Generate(context.Background(), "Tables:\n...\n\nQuery: list names")
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM employees", sql)
	assert.Equal(t, "Tables:\n...\n\nQuery: list names", model.LastPrompt)
}

func TestSQLGenerator_Error(t *testing.T) {
	model := &MockChatModel{CompleteFunc: func(ctx context.Context, system, prompt string) (string, error) {
		return "", NewError(ErrorTypeAuth, "authentication failed", false, nil)
	}}
	gen := NewSQLGenerator(model, newTestPool(), zap.NewNop())

	_, err := gen.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Equal(t, ErrorTypeAuth, GetErrorType(err))
}
