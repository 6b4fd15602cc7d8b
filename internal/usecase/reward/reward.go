// Package reward turns per-window score records into a normalized reward vector.
package reward

import (
	"fmt"
	"math"
	"sort"

	domreward "github.com/kailas-cloud/convscore/internal/domain/reward"
	"github.com/kailas-cloud/convscore/internal/domain/score"
)

const defaultNoveltyWeight = 0.25

// Scheme names accepted by NewScheme.
const (
	SchemeProportional = "proportional"
	SchemeSoftmax      = "softmax"
	SchemeRank         = "rank"
)

// Normalizer maps non-negative effective scores to rewards.
// scores are ordered by worker id; the result has the same length.
type Normalizer interface {
	Normalize(scores []float64) []float64
}

// NewScheme resolves a normalizer by name.
func NewScheme(name string, temperature float64) (Normalizer, error) {
	switch name {
	case "", SchemeProportional:
		return Proportional{}, nil
	case SchemeSoftmax:
		return Softmax{Temperature: temperature}, nil
	case SchemeRank:
		return Rank{}, nil
	default:
		return nil, fmt.Errorf("unknown reward scheme %q", name)
	}
}

// Calculator builds reward vectors from score records.
type Calculator struct {
	scheme        Normalizer
	noveltyWeight float64
}

// NewCalculator creates a calculator. A nil scheme means Proportional.
func NewCalculator(scheme Normalizer) *Calculator {
	if scheme == nil {
		scheme = Proportional{}
	}
	return &Calculator{scheme: scheme, noveltyWeight: defaultNoveltyWeight}
}

// WithNoveltyWeight sets how much the median similarity of unique tags boosts the base score.
func (c *Calculator) WithNoveltyWeight(w float64) *Calculator {
	if w >= 0 {
		c.noveltyWeight = w
	}
	return c
}

// Effective combines base score and novelty. Zero base always yields zero.
func (c *Calculator) Effective(r score.Record) float64 {
	base := math.Max(0, r.BaseScore)
	novelty := math.Max(0, r.MedianSimilarity)
	return base * (1 + c.noveltyWeight*novelty)
}

// Calculate produces the reward vector for one window. The result does not
// depend on the order of records. Duplicate worker ids keep their best score.
func (c *Calculator) Calculate(windowIndex int, records []score.Record) domreward.Vector {
	best := make(map[string]float64, len(records))
	for _, r := range records {
		eff := c.Effective(r)
		if prev, ok := best[r.WorkerID]; !ok || eff > prev {
			best[r.WorkerID] = eff
		}
	}

	ids := make([]string, 0, len(best))
	for id := range best {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	scores := make([]float64, len(ids))
	for i, id := range ids {
		scores[i] = best[id]
	}
	normalized := c.scheme.Normalize(scores)

	out := domreward.Vector{WindowIndex: windowIndex, Rewards: make(map[string]float64, len(ids))}
	for i, id := range ids {
		out.Rewards[id] = normalized[i]
	}
	return out
}
