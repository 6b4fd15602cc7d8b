package compare

import (
	"github.com/kailas-cloud/convscore/internal/domain"
	"github.com/kailas-cloud/convscore/internal/domain/score"
	"github.com/kailas-cloud/convscore/internal/domain/worker"
)

// Engine scores worker results against reference metadata.
type Engine struct {
	score BaseScoreFunc
}

// NewEngine creates an engine. A nil scorer falls back to DefaultBaseScore.
func NewEngine(s BaseScoreFunc) *Engine {
	if s == nil {
		s = DefaultBaseScore()
	}
	return &Engine{score: s}
}

// ScoreWorker compares one worker result with the reference.
// Similarity is measured only for tags the reference did not produce,
// against the centroid of the reference vectors.
func (e *Engine) ScoreWorker(ref *domain.ReferenceMetadata, res worker.Result) score.Record {
	cmp := Compare(ref.Tags(), res.Tags)
	rec := score.Record{
		WorkerID:  res.WorkerID,
		BaseScore: e.score.BaseScore(cmp),
	}

	neighborhood := ref.Neighborhood()
	if neighborhood == nil {
		return rec
	}
	for _, tag := range cmp.UniqueWorker.Sorted() {
		vec, ok := res.Vectors.Lookup(tag)
		if !ok {
			continue
		}
		rec.SimilarityScores = append(rec.SimilarityScores, Cosine(vec, neighborhood))
	}
	rec.MedianSimilarity = Median(rec.SimilarityScores)
	return rec
}

// ScoreAll scores every result, preserving input order.
func (e *Engine) ScoreAll(ref *domain.ReferenceMetadata, results []worker.Result) []score.Record {
	records := make([]score.Record, 0, len(results))
	for _, r := range results {
		records = append(records, e.ScoreWorker(ref, r))
	}
	return records
}
