package reward

import "sort"

// Vector is the reward distribution of one window across responding workers.
type Vector struct {
	WindowIndex int                `json:"window_index"`
	Rewards     map[string]float64 `json:"rewards"`
}

// Workers returns worker ids in lexical order.
func (v Vector) Workers() []string {
	ids := make([]string, 0, len(v.Rewards))
	for id := range v.Rewards {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Total returns the sum of all rewards, accumulated in worker id order.
func (v Vector) Total() float64 {
	var sum float64
	for _, id := range v.Workers() {
		sum += v.Rewards[id]
	}
	return sum
}
