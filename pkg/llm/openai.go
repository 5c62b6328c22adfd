package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient talks to any OpenAI-compatible endpoint (OpenAI, vLLM,
// Ollama, LM Studio). It serves both chat and embedding calls.
type OpenAIClient struct {
	client   *openai.Client
	endpoint string
	model    string
	logger   *zap.Logger
}

var (
	_ ChatModel = (*OpenAIClient)(nil)
	_ Embedder  = (*OpenAIClient)(nil)
)

// ClientConfig holds the settings shared by every provider client.
type ClientConfig struct {
	BaseURL string // e.g. "https://api.openai.com/v1"; empty uses the provider default
	APIKey  string // Optional for local endpoints
	Model   string
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
func NewOpenAIClient(cfg ClientConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	return &OpenAIClient{
		client:   openai.NewClientWithConfig(clientConfig),
		endpoint: clientConfig.BaseURL,
		model:    cfg.Model,
		logger:   logger.Named("llm").With(zap.String("provider", ProviderOpenAI)),
	}, nil
}

// Complete implements ChatModel. Temperature is zero so repeated questions
// produce stable SQL and scores.
func (c *OpenAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0,
	})
	if err != nil {
		c.logger.Error("Chat completion failed",
			zap.String("model", c.model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", withContext(err, ProviderOpenAI, c.model, c.endpoint)
	}

	if len(resp.Choices) == 0 {
		return "", &Error{Type: ErrorTypeResponse, Message: "no choices in response", Provider: ProviderOpenAI, Model: c.model}
	}

	c.logger.Debug("Chat completion finished",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return resp.Choices[0].Message.Content, nil
}

// Embed implements Embedder.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: texts,
	})
	if err != nil {
		return nil, withContext(err, ProviderOpenAI, c.model, c.endpoint)
	}

	if len(resp.Data) != len(texts) {
		return nil, &Error{
			Type:     ErrorTypeResponse,
			Message:  fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Data)),
			Provider: ProviderOpenAI,
			Model:    c.model,
		}
	}

	// The API reports each vector's input position; do not rely on response order.
	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, &Error{Type: ErrorTypeResponse, Message: fmt.Sprintf("embedding index %d out of range", d.Index), Provider: ProviderOpenAI, Model: c.model}
		}
		embeddings[d.Index] = d.Embedding
	}
	return embeddings, nil
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string {
	return c.model
}
