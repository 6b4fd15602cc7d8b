package orchestrator

import "time"

// CycleReport describes the outcome of one RunCycle call.
type CycleReport struct {
	CycleID          string         `json:"cycle_id"`
	BatchNum         int64          `json:"batch_num"`
	ConversationGUID string         `json:"conversation_guid,omitempty"`
	State            State          `json:"state"`
	AbortReason      string         `json:"abort_reason,omitempty"`
	ReferenceTags    []string       `json:"reference_tags,omitempty"`
	Windows          []WindowReport `json:"windows,omitempty"`
	TokensUsed       int            `json:"tokens_used,omitempty"`
	StartedAt        time.Time      `json:"started_at"`
	Duration         time.Duration  `json:"duration_ns"`
}

// WindowReport describes one window of a cycle.
type WindowReport struct {
	Index     int                `json:"index"`
	Seed      uint64             `json:"seed"`
	Workers   []string           `json:"workers"`
	Responded []string           `json:"responded"`
	Rewards   map[string]float64 `json:"rewards,omitempty"`
	Emitted   bool               `json:"emitted"`
}
