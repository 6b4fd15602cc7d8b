package compare

import "github.com/kailas-cloud/convscore/internal/domain/score"

// BaseScoreFunc turns a tag comparison into a non-negative base score.
type BaseScoreFunc interface {
	BaseScore(c score.Comparison) float64
}

// WeightedOverlap scores shared / (shared + RefWeight*uniqueRef + WorkerWeight*uniqueWorker).
// Missed reference tags and extra worker tags both dilute the score.
type WeightedOverlap struct {
	RefWeight    float64
	WorkerWeight float64
}

// DefaultBaseScore is WeightedOverlap with equal 0.5 penalties.
func DefaultBaseScore() WeightedOverlap {
	return WeightedOverlap{RefWeight: 0.5, WorkerWeight: 0.5}
}

// BaseScore implements BaseScoreFunc.
func (w WeightedOverlap) BaseScore(c score.Comparison) float64 {
	shared := float64(c.Shared.Len())
	denom := shared +
		w.RefWeight*float64(c.UniqueReference.Len()) +
		w.WorkerWeight*float64(c.UniqueWorker.Len())
	if denom <= 0 {
		return 0
	}
	return shared / denom
}
