package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekam-query/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekam-query/pkg/models"
)

func TestAskTool_ReturnsResponse(t *testing.T) {
	engine := &fakeEngine{askFunc: func(ctx context.Context, sess datasource.Session, query string) (*models.QueryResponse, error) {
		res, err := sess.Query(ctx, "SELECT COUNT(*) AS n FROM employees")
		if err != nil {
			return nil, err
		}
		return &models.QueryResponse{
			QueryType:          models.QueryTypeSQL,
			SQLResult:          &models.SQLResult{GeneratedQuery: "SELECT COUNT(*) AS n FROM employees", Columns: res.Columns, Rows: res.Rows},
			DocumentResults:    []models.DocumentResult{},
			PerformanceMetrics: map[string]float64{models.MetricTotalTime: 0.01},
			CacheStatus:        models.CacheMiss,
		}, nil
	}}
	s, _ := newToolServer(t, engine)

	resp := callTool(t, s, "ask", map[string]any{"query": "  How many employees are there?  "})

	assert.False(t, resp.Result.IsError)
	var got models.QueryResponse
	require.NoError(t, json.Unmarshal([]byte(resp.text(t)), &got))
	assert.Equal(t, models.QueryTypeSQL, got.QueryType)
	require.NotNil(t, got.SQLResult)
	assert.Equal(t, []string{"n"}, got.SQLResult.Columns)
	assert.Equal(t, [][]any{{float64(3)}}, got.SQLResult.Rows)
	assert.Equal(t, []string{"How many employees are there?"}, engine.queries)
}

func TestAskTool_InvalidQuery(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing", map[string]any{}},
		{"blank", map[string]any{"query": "   "}},
		{"wrong type", map[string]any{"query": 42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{}
			s, _ := newToolServer(t, engine)

			resp := callTool(t, s, "ask", tt.args)

			assert.True(t, resp.Result.IsError)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(resp.text(t)), &body))
			assert.Equal(t, CodeInvalidParameters, body.Code)
			assert.Empty(t, engine.queries)
		})
	}
}

func TestAskTool_EngineFailure(t *testing.T) {
	engine := &fakeEngine{askFunc: func(context.Context, datasource.Session, string) (*models.QueryResponse, error) {
		return nil, errors.New("classification failed: scorer offline")
	}}
	s, _ := newToolServer(t, engine)

	resp := callTool(t, s, "ask", map[string]any{"query": "What is the travel policy?"})

	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "scorer offline")
}
