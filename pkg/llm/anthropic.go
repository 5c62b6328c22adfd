package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// anthropicMaxTokens caps a completion. SQL answers and label scores are short.
const anthropicMaxTokens = 1024

// AnthropicClient serves chat completions from the Anthropic Messages API.
// Anthropic has no embedding endpoint, so it only implements ChatModel.
type AnthropicClient struct {
	client   *anthropic.Client
	endpoint string
	model    string
	logger   *zap.Logger
}

var _ ChatModel = (*AnthropicClient)(nil)

// NewAnthropicClient creates a Messages API client.
func NewAnthropicClient(cfg ClientConfig, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required for anthropic")
	}

	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}

	return &AnthropicClient{
		client:   anthropic.NewClient(cfg.APIKey, opts...),
		endpoint: cfg.BaseURL,
		model:    cfg.Model,
		logger:   logger.Named("llm").With(zap.String("provider", ProviderAnthropic)),
	}, nil
}

// Complete implements ChatModel.
func (c *AnthropicClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	temperature := float32(0)

	start := time.Now()
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      system,
		MaxTokens:   anthropicMaxTokens,
		Temperature: &temperature,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		c.logger.Error("Message request failed",
			zap.String("model", c.model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", withContext(err, ProviderAnthropic, c.model, c.endpoint)
	}

	text, ok := firstText(resp)
	if !ok {
		return "", &Error{Type: ErrorTypeResponse, Message: "no text content in response", Provider: ProviderAnthropic, Model: c.model}
	}

	c.logger.Debug("Message request finished",
		zap.String("model", c.model),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return text, nil
}

// Model returns the configured model name.
func (c *AnthropicClient) Model() string {
	return c.model
}

func firstText(resp anthropic.MessagesResponse) (string, bool) {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text, true
		}
	}
	return "", false
}
