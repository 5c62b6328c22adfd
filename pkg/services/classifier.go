package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekam-query/pkg/apperrors"
	"github.com/ekaya-inc/ekam-query/pkg/llm"
	"github.com/ekaya-inc/ekam-query/pkg/models"
)

// Zero-shot labels scored for every query that no rule matches.
const (
	LabelDatabaseQuery  = "database query"
	LabelDocumentSearch = "document search"
)

// scoreThreshold is exclusive: a label counts only when its score is above it.
const scoreThreshold = 0.5

// sqlRulePrefixes route a query straight to SQL when the lower-cased, trimmed
// text starts with one of them. Checked in order.
var sqlRulePrefixes = []string{
	"list all",
	"show me",
	"select ",
	"how many",
	"average salary",
	"count ",
	"find employees",
	"who reports to",
	"top 5",
}

// QueryClassifier decides which retrieval path answers a query.
type QueryClassifier interface {
	// Classify returns sql, document, hybrid or unknown. Scorer failures are
	// not retried and come back wrapped in apperrors.ErrClassification.
	Classify(ctx context.Context, query string) (models.QueryType, error)
}

type queryClassifier struct {
	scorer llm.ZeroShotScorer
	logger *zap.Logger
}

var _ QueryClassifier = (*queryClassifier)(nil)

// NewQueryClassifier creates a classifier backed by scorer.
func NewQueryClassifier(scorer llm.ZeroShotScorer, logger *zap.Logger) QueryClassifier {
	return &queryClassifier{
		scorer: scorer,
		logger: logger.Named("classifier"),
	}
}

func (c *queryClassifier) Classify(ctx context.Context, query string) (models.QueryType, error) {
	if prefix, ok := matchSQLRule(query); ok {
		c.logger.Debug("Classified by rule", zap.String("rule", prefix))
		return models.QueryTypeSQL, nil
	}

	scores, err := c.scorer.Score(ctx, query, []string{LabelDatabaseQuery, LabelDocumentSearch})
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrClassification, err)
	}

	db := scores[LabelDatabaseQuery]
	doc := scores[LabelDocumentSearch]
	queryType := decideQueryType(db, doc)

	c.logger.Debug("Classified by scorer",
		zap.Float64("database_score", db),
		zap.Float64("document_score", doc),
		zap.String("query_type", string(queryType)))

	return queryType, nil
}

func matchSQLRule(query string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	for _, prefix := range sqlRulePrefixes {
		if strings.HasPrefix(normalized, prefix) {
			return prefix, true
		}
	}
	return "", false
}

func decideQueryType(db, doc float64) models.QueryType {
	switch {
	case db > scoreThreshold && doc > scoreThreshold:
		return models.QueryTypeHybrid
	case db > scoreThreshold:
		return models.QueryTypeSQL
	case doc > scoreThreshold:
		return models.QueryTypeDocument
	default:
		return models.QueryTypeUnknown
	}
}
