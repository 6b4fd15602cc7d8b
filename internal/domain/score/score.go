package score

import "github.com/kailas-cloud/convscore/internal/domain"

// Comparison is the set comparison of reference tags against a worker's tags.
type Comparison struct {
	Shared          domain.TagSet
	UniqueReference domain.TagSet
	UniqueWorker    domain.TagSet
	TotalReference  int
	TotalWorker     int
}

// Record is one worker's score for one window.
type Record struct {
	WorkerID         string
	BaseScore        float64
	SimilarityScores []float64
	MedianSimilarity float64
}
