package rag

import (
	"math"
	"sort"
)

// Cosine computes the cosine similarity of two vectors. A zero-magnitude or
// mismatched-dimension pair yields NaN; Rank orders NaN below every real
// score so ranking stays deterministic.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.NaN()
	}
	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return math.NaN()
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

type scoredDocument struct {
	doc   Document
	score float64
}

// Rank returns the top k documents by descending cosine similarity to the
// query vector. The sort is stable, so equal scores keep insertion order.
// An empty store or k <= 0 yields an empty result.
func (s *Store) Rank(query []float64, k int) []Document {
	s.mu.RLock()
	scored := make([]scoredDocument, len(s.docs))
	for i, doc := range s.docs {
		scored[i] = scoredDocument{doc: doc, score: Cosine(query, doc.Embedding)}
	}
	s.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool {
		if math.IsNaN(scored[i].score) {
			return false
		}
		if math.IsNaN(scored[j].score) {
			return true
		}
		return scored[i].score > scored[j].score
	})

	if k < 0 {
		k = 0
	}
	if k > len(scored) {
		k = len(scored)
	}
	out := make([]Document, k)
	for i := 0; i < k; i++ {
		out[i] = scored[i].doc
	}
	return out
}
