package llm

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/config"
)

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// NewChatModel builds the chat model for one role (SQL generation or scoring)
// from the models configuration.
func NewChatModel(ctx context.Context, cfg *config.ModelsConfig, model string, logger *zap.Logger) (ChatModel, error) {
	clientCfg := ClientConfig{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Model: model}

	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(clientCfg, logger)
	case ProviderAnthropic:
		return NewAnthropicClient(clientCfg, logger)
	case ProviderGemini:
		return NewGeminiClient(ctx, clientCfg, logger)
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
}

// NewEmbedder builds the embedding client from the models configuration.
func NewEmbedder(ctx context.Context, cfg *config.ModelsConfig, logger *zap.Logger) (Embedder, error) {
	clientCfg := ClientConfig{BaseURL: cfg.EmbeddingBaseURL, APIKey: cfg.EmbeddingAPIKey, Model: cfg.EmbeddingModel}

	switch cfg.EmbeddingProvider {
	case ProviderOpenAI:
		return NewOpenAIClient(clientCfg, logger)
	case ProviderGemini:
		return NewGeminiClient(ctx, clientCfg, logger)
	case ProviderAnthropic:
		return nil, fmt.Errorf("provider %q has no embedding API", cfg.EmbeddingProvider)
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.EmbeddingProvider)
	}
}

// Close releases a client's resources if it holds any.
func Close(client any) error {
	if c, ok := client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
