package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const scorerSystemPrompt = `You are a zero-shot text classifier.
For each candidate label, judge independently how well the label describes the user's text.
Labels are not mutually exclusive; the scores do not need to sum to 1.
Respond with ONLY a JSON object mapping every label to a number between 0 and 1.`

// PromptScorer implements ZeroShotScorer with a chat model. Each label gets an
// independent score, which gives multi-label behaviour.
type PromptScorer struct {
	model  ChatModel
	pool   *WorkerPool
	logger *zap.Logger
}

var _ ZeroShotScorer = (*PromptScorer)(nil)

// NewPromptScorer creates a scorer whose calls run through pool.
func NewPromptScorer(model ChatModel, pool *WorkerPool, logger *zap.Logger) *PromptScorer {
	return &PromptScorer{
		model:  model,
		pool:   pool,
		logger: logger.Named("scorer"),
	}
}

// Score implements ZeroShotScorer. Labels missing from the answer are
// omitted; values are clamped to [0,1].
func (s *PromptScorer) Score(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	prompt := buildScorerPrompt(text, labels)

	raw, err := Do(ctx, s.pool, func(ctx context.Context) (string, error) {
		return s.model.Complete(ctx, scorerSystemPrompt, prompt)
	})
	if err != nil {
		return nil, fmt.Errorf("scoring labels: %w", err)
	}

	parsed, err := ParseJSONResponse[map[string]float64](raw)
	if err != nil {
		return nil, &Error{
			Type:    ErrorTypeResponse,
			Message: "unparseable label scores",
			Model:   s.model.Model(),
			Cause:   err,
		}
	}

	scores := make(map[string]float64, len(labels))
	for _, label := range labels {
		v, ok := lookupLabel(parsed, label)
		if !ok {
			continue
		}
		scores[label] = clamp01(v)
	}

	s.logger.Debug("Scored labels", zap.Any("scores", scores))
	return scores, nil
}

func buildScorerPrompt(text string, labels []string) string {
	quoted, _ := json.Marshal(labels)
	var sb strings.Builder
	sb.WriteString("Candidate labels: ")
	sb.Write(quoted)
	sb.WriteString("\n\nText: ")
	sb.WriteString(text)
	return sb.String()
}

// lookupLabel matches exactly first, then case-insensitively.
func lookupLabel(scores map[string]float64, label string) (float64, bool) {
	if v, ok := scores[label]; ok {
		return v, true
	}
	for k, v := range scores {
		if strings.EqualFold(strings.TrimSpace(k), label) {
			return v, true
		}
	}
	return 0, false
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
