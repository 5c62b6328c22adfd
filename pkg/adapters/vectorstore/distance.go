package vectorstore

import (
	"maps"
	"math"
	"sort"
)

// CosineDistance returns 1 - cosine similarity. Vectors of different length or
// zero magnitude are maximally distant.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2
	}

	return 1 - dotProduct/(math.Sqrt(normA)*math.Sqrt(normB))
}

type scored struct {
	record   Record
	distance float64
}

// nearest ranks candidates by distance to embedding and keeps the first n.
// Ties are broken by ID so results are stable.
func nearest(candidates []Record, embedding []float32, n int) *QueryResult {
	ranked := make([]scored, 0, len(candidates))
	for _, r := range candidates {
		ranked = append(ranked, scored{record: r, distance: CosineDistance(embedding, r.Embedding)})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].distance != ranked[j].distance {
			return ranked[i].distance < ranked[j].distance
		}
		return ranked[i].record.ID < ranked[j].record.ID
	})

	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	result := &QueryResult{
		IDs:       make([]string, len(ranked)),
		Documents: make([]string, len(ranked)),
		Metadatas: make([]map[string]any, len(ranked)),
		Distances: make([]float64, len(ranked)),
	}
	for i, s := range ranked {
		result.IDs[i] = s.record.ID
		result.Documents[i] = s.record.Document
		result.Metadatas[i] = maps.Clone(s.record.Metadata)
		result.Distances[i] = s.distance
	}
	return result
}
