// Package similarity scores embeddings against each other and ranks them.
package similarity

import (
	"math"
	"sort"
)

// Cosine returns dot(a,b) / (|a|*|b|), which equals 1 minus the cosine
// distance. Vectors of different length, empty vectors, zero-norm vectors
// (the failure sentinel) and non-finite results all score 0, so a ranking
// never sees NaN.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	score := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case math.IsNaN(score) || math.IsInf(score, 0):
		return 0
	case score > 1:
		return 1
	case score < -1:
		return -1
	}
	return score
}

// Scored is a candidate position with its similarity to the query.
type Scored struct {
	Index int
	Score float64
}

// Rank scores every candidate against query, sorts by descending score
// with ties kept in candidate order, and keeps the first k. k <= 0 keeps
// all of them.
func Rank[V ~[]float64](query V, candidates []V, k int) []Scored {
	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{Index: i, Score: Cosine(query, c)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > 0 && k < len(scored) {
		scored = scored[:k]
	}
	return scored
}
