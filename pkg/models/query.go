package models

import "maps"

// QueryType is the classified intent of a natural-language query.
type QueryType string

const (
	QueryTypeSQL      QueryType = "sql"
	QueryTypeDocument QueryType = "document"
	QueryTypeHybrid   QueryType = "hybrid"
	QueryTypeUnknown  QueryType = "unknown"
)

// CacheStatus reports whether a response was served from the query cache.
type CacheStatus string

const (
	CacheHit  CacheStatus = "hit"
	CacheMiss CacheStatus = "miss"
)

// MetricTotalTime is the performance metric key for end-to-end latency in seconds.
const MetricTotalTime = "total_time_seconds"

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query string `json:"query"`
}

// SQLResult holds the outcome of the SQL path.
// GeneratedQuery carries the executed SQL, or a "BLOCKED: " / "Failed" marker.
type SQLResult struct {
	Columns        []string `json:"columns"`
	Rows           [][]any  `json:"rows"`
	GeneratedQuery string   `json:"generated_query"`
}

// DocumentResult is one retrieved chunk.
// SimilarityScore is the index distance: lower means closer.
type DocumentResult struct {
	SourceFile      string  `json:"source_file"`
	ChunkIndex      int     `json:"chunk_index"`
	Content         string  `json:"content"`
	SimilarityScore float64 `json:"similarity_score"`
}

// QueryResponse is the merged answer for one query.
type QueryResponse struct {
	QueryType          QueryType          `json:"query_type"`
	SQLResult          *SQLResult         `json:"sql_result"`
	DocumentResults    []DocumentResult   `json:"document_results"`
	PerformanceMetrics map[string]float64 `json:"performance_metrics"`
	CacheStatus        CacheStatus        `json:"cache_status"`
}

// Clone returns a deep copy. Row values are scalars and are copied by value.
func (r *QueryResponse) Clone() *QueryResponse {
	if r == nil {
		return nil
	}
	out := &QueryResponse{
		QueryType:          r.QueryType,
		DocumentResults:    append([]DocumentResult{}, r.DocumentResults...),
		PerformanceMetrics: maps.Clone(r.PerformanceMetrics),
		CacheStatus:        r.CacheStatus,
	}
	if out.PerformanceMetrics == nil {
		out.PerformanceMetrics = map[string]float64{}
	}
	if r.SQLResult != nil {
		rows := make([][]any, len(r.SQLResult.Rows))
		for i, row := range r.SQLResult.Rows {
			rows[i] = append([]any(nil), row...)
		}
		out.SQLResult = &SQLResult{
			Columns:        append([]string{}, r.SQLResult.Columns...),
			Rows:           rows,
			GeneratedQuery: r.SQLResult.GeneratedQuery,
		}
	}
	return out
}
