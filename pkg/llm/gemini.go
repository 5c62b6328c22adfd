package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiClient serves chat and embedding calls from the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

var (
	_ ChatModel = (*GeminiClient)(nil)
	_ Embedder  = (*GeminiClient)(nil)
)

// NewGeminiClient creates a Gemini client. The client holds a gRPC
// connection; Close releases it.
func NewGeminiClient(ctx context.Context, cfg ClientConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required for gemini")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  cfg.Model,
		logger: logger.Named("llm").With(zap.String("provider", ProviderGemini)),
	}, nil
}

// Complete implements ChatModel.
func (c *GeminiClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0)
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		c.logger.Error("Content generation failed",
			zap.String("model", c.model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", withContext(err, ProviderGemini, c.model, "")
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &Error{Type: ErrorTypeResponse, Message: "no candidates in response", Provider: ProviderGemini, Model: c.model}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	c.logger.Debug("Content generation finished",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(start)))

	return sb.String(), nil
}

// Embed implements Embedder. All texts go out in one batch request.
func (c *GeminiClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := c.client.EmbeddingModel(c.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, withContext(err, ProviderGemini, c.model, "")
	}
	if res == nil || len(res.Embeddings) != len(texts) {
		got := 0
		if res != nil {
			got = len(res.Embeddings)
		}
		return nil, &Error{
			Type:     ErrorTypeResponse,
			Message:  fmt.Sprintf("expected %d embeddings, got %d", len(texts), got),
			Provider: ProviderGemini,
			Model:    c.model,
		}
	}

	out := make([][]float32, len(texts))
	for i, e := range res.Embeddings {
		if e == nil {
			return nil, &Error{Type: ErrorTypeResponse, Message: fmt.Sprintf("empty embedding at %d", i), Provider: ProviderGemini, Model: c.model}
		}
		out[i] = e.Values
	}
	return out, nil
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string {
	return c.model
}

// Close releases the underlying connection.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}
