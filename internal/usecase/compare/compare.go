// Package compare scores a worker's tags and embeddings against reference metadata.
package compare

import (
	"math"
	"sort"

	"github.com/kailas-cloud/convscore/internal/domain"
	"github.com/kailas-cloud/convscore/internal/domain/score"
)

// Compare partitions reference and worker tags into shared and unique sets.
func Compare(ref, w domain.TagSet) score.Comparison {
	return score.Comparison{
		Shared:          ref.Intersect(w),
		UniqueReference: ref.Difference(w),
		UniqueWorker:    w.Difference(ref),
		TotalReference:  ref.Len(),
		TotalWorker:     w.Len(),
	}
}

// Cosine returns the cosine similarity of a and b.
// Zero-norm, empty or mismatched inputs score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(sim) {
		return 0
	}
	return sim
}

// Neighborhood returns the elementwise mean of the vectors.
func Neighborhood(v domain.Vectors) []float32 {
	return v.Mean()
}

// Median returns the median of xs, 0 when empty. xs is not modified.
func Median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
