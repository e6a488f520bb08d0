// Package rag ranks brand kit documents against a query embedding.
package rag

import (
	"math"
	"sort"

	"github.com/xiaot623/novaflow/internal/domain"
)

// Scored is a brand doc with its similarity to the query.
type Scored struct {
	Score float64
	Doc   domain.BrandDoc
}

// Cosine computes cosine similarity over the overlapping prefix of the two
// vectors. Zero-norm vectors score near zero instead of dividing by zero.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, x := range a {
		na += float64(x) * float64(x)
	}
	for _, y := range b {
		nb += float64(y) * float64(y)
	}
	na = math.Sqrt(na)
	nb = math.Sqrt(nb)
	if na == 0 {
		na = 1e-9
	}
	if nb == 0 {
		nb = 1e-9
	}
	return dot / (na * nb)
}

// TopK returns the k docs most similar to the query, best first. Ties keep
// the stored doc order so results are stable.
func TopK(query []float32, docs []domain.BrandDoc, k int) []Scored {
	scored := make([]Scored, 0, len(docs))
	for _, doc := range docs {
		scored = append(scored, Scored{Score: Cosine(query, doc.Embedding), Doc: doc})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
