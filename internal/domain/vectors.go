package domain

import "sort"

// Vectors maps a normalized tag to its embedding.
type Vectors map[string][]float32

// NewVectors normalizes tag keys. Empty keys and empty vectors are dropped;
// on a normalization collision the lexically first original key wins.
func NewVectors(raw map[string][]float32) Vectors {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Vectors, len(raw))
	for _, k := range keys {
		n := NormalizeTag(k)
		if n == "" || len(raw[k]) == 0 {
			continue
		}
		if _, seen := out[n]; seen {
			continue
		}
		out[n] = raw[k]
	}
	return out
}

// Lookup returns the vector for a tag, normalizing the key first.
func (v Vectors) Lookup(tag string) ([]float32, bool) {
	vec, ok := v[NormalizeTag(tag)]
	return vec, ok && len(vec) > 0
}

// Mean returns the elementwise mean of all vectors with the dominant dimension.
// Returns nil when there are no vectors.
func (v Vectors) Mean() []float32 {
	dim := v.dominantDim()
	if dim == 0 {
		return nil
	}

	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sum := make([]float64, dim)
	n := 0
	for _, k := range keys {
		vec := v[k]
		if len(vec) != dim {
			continue
		}
		for i, x := range vec {
			sum[i] += float64(x)
		}
		n++
	}

	mean := make([]float32, dim)
	for i := range sum {
		mean[i] = float32(sum[i] / float64(n))
	}
	return mean
}

// dominantDim picks the most frequent vector length; ties go to the larger length.
func (v Vectors) dominantDim() int {
	counts := make(map[int]int)
	for _, vec := range v {
		if len(vec) > 0 {
			counts[len(vec)]++
		}
	}
	best, bestCount := 0, 0
	for dim, c := range counts {
		if c > bestCount || (c == bestCount && dim > best) {
			best, bestCount = dim, c
		}
	}
	return best
}
