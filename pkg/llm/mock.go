package llm

import (
	"context"
	"sync"
)

// MockChatModel is a configurable ChatModel for tests.
type MockChatModel struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, returns an empty string and nil error.
	CompleteFunc func(ctx context.Context, system, prompt string) (string, error)

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	mu            sync.Mutex
	CompleteCalls int
	LastPrompt    string
}

var _ ChatModel = (*MockChatModel)(nil)

// NewMockChatModel creates a mock that answers every prompt with response.
func NewMockChatModel(response string) *MockChatModel {
	return &MockChatModel{
		CompleteFunc: func(ctx context.Context, system, prompt string) (string, error) {
			return response, nil
		},
	}
}

// Complete implements ChatModel.
func (m *MockChatModel) Complete(ctx context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	m.CompleteCalls++
	m.LastPrompt = prompt
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, system, prompt)
	}
	return "", nil
}

// Model implements ChatModel.
func (m *MockChatModel) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

// MockEmbedder is a configurable Embedder for tests.
type MockEmbedder struct {
	// EmbedFunc is called when Embed is invoked.
	// If nil, every text gets the vector {1, 0}.
	EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

	mu         sync.Mutex
	EmbedCalls int
	Texts      []string
}

var _ Embedder = (*MockEmbedder)(nil)

// Embed implements Embedder.
func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.EmbedCalls++
	m.Texts = append(m.Texts, texts...)
	m.mu.Unlock()

	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

// Model implements Embedder.
func (m *MockEmbedder) Model() string {
	return "mock-embedding"
}

// Calls returns the number of Embed calls so far.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.EmbedCalls
}

// MockScorer is a configurable ZeroShotScorer for tests.
type MockScorer struct {
	// ScoreFunc is called when Score is invoked.
	// If nil, returns Scores and nil error.
	ScoreFunc func(ctx context.Context, text string, labels []string) (map[string]float64, error)
	Scores    map[string]float64

	mu         sync.Mutex
	ScoreCalls int
}

var _ ZeroShotScorer = (*MockScorer)(nil)

// Score implements ZeroShotScorer.
func (m *MockScorer) Score(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	m.mu.Lock()
	m.ScoreCalls++
	m.mu.Unlock()

	if m.ScoreFunc != nil {
		return m.ScoreFunc(ctx, text, labels)
	}
	return m.Scores, nil
}

// Calls returns the number of Score calls so far.
func (m *MockScorer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ScoreCalls
}

// MockSQLGenerator is a configurable SQLGenerator for tests.
type MockSQLGenerator struct {
	// GenerateFunc is called when Generate is invoked.
	// If nil, returns SQL and nil error.
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
	SQL          string

	mu            sync.Mutex
	GenerateCalls int
	Prompts       []string
}

var _ SQLGenerator = (*MockSQLGenerator)(nil)

// Generate implements SQLGenerator.
func (m *MockSQLGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.GenerateCalls++
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return m.SQL, nil
}

// Calls returns the number of Generate calls so far.
func (m *MockSQLGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.GenerateCalls
}
