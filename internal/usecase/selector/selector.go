package selector

import (
	"math/rand/v2"
	"sync"
)

// DefaultPerWindow is the default number of workers per window.
const DefaultPerWindow = 3

// Sample returns min(n, |unique pool|) distinct worker ids chosen uniformly at
// random. The result depends only on (pool, n, seed); the pool is not modified.
func Sample(pool []string, n int, seed uint64) []string {
	if n <= 0 || len(pool) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(pool))
	uniq := make([]string, 0, len(pool))
	for _, id := range pool {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}

	n = min(n, len(uniq))
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // selection fairness, not security

	// partial Fisher-Yates: the first n slots hold the sample
	for i := range n {
		j := i + rng.IntN(len(uniq)-i)
		uniq[i], uniq[j] = uniq[j], uniq[i]
	}
	return uniq[:n:n]
}

// Selector draws a fresh seed per selection so that successive windows get
// independent samples while every draw stays reproducible from its seed.
type Selector struct {
	perWindow int

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a selector. perWindow <= 0 falls back to DefaultPerWindow.
func New(perWindow int, seed uint64) *Selector {
	if perWindow <= 0 {
		perWindow = DefaultPerWindow
	}
	return &Selector{
		perWindow: perWindow,
		rng:       rand.New(rand.NewPCG(seed, ^seed)), //nolint:gosec // selection fairness, not security
	}
}

// PerWindow returns the configured target count.
func (s *Selector) PerWindow() int { return s.perWindow }

// Select samples workers from pool and returns the sample with its seed.
func (s *Selector) Select(pool []string) ([]string, uint64) {
	s.mu.Lock()
	seed := s.rng.Uint64()
	s.mu.Unlock()
	return Sample(pool, s.perWindow, seed), seed
}
