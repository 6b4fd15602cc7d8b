package reward

import (
	"math"
	"sort"
)

// Proportional rewards each worker by its share of the total score.
type Proportional struct{}

// Normalize implements Normalizer.
func (Proportional) Normalize(scores []float64) []float64 {
	out := make([]float64, len(scores))
	var sum float64
	for _, s := range scores {
		sum += s
	}
	if sum <= 0 {
		return out
	}
	for i, s := range scores {
		out[i] = s / sum
	}
	return out
}

// Softmax rewards positive scorers with exp(s/T) weights.
// Zero scorers receive nothing.
type Softmax struct {
	Temperature float64
}

// Normalize implements Normalizer.
func (s Softmax) Normalize(scores []float64) []float64 {
	out := make([]float64, len(scores))
	t := s.Temperature
	if t <= 0 {
		t = 1
	}

	maxScore := math.Inf(-1)
	for _, v := range scores {
		if v > 0 && v > maxScore {
			maxScore = v
		}
	}
	if math.IsInf(maxScore, -1) {
		return out
	}

	var sum float64
	for i, v := range scores {
		if v <= 0 {
			continue
		}
		out[i] = math.Exp((v - maxScore) / t)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Rank rewards positive scorers by ascending rank, ties sharing the average rank.
type Rank struct{}

// Normalize implements Normalizer.
func (Rank) Normalize(scores []float64) []float64 {
	out := make([]float64, len(scores))

	idx := make([]int, 0, len(scores))
	for i, v := range scores {
		if v > 0 {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return out
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	var sum float64
	for start := 0; start < len(idx); {
		end := start
		for end+1 < len(idx) && scores[idx[end+1]] == scores[idx[start]] {
			end++
		}
		// ranks are 1-based: positions start..end share their mean
		avg := float64(start+end)/2 + 1
		for k := start; k <= end; k++ {
			out[idx[k]] = avg
			sum += avg
		}
		start = end + 1
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
