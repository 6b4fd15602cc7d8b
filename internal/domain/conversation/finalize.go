package conversation

import (
	"github.com/kailas-cloud/convscore/internal/domain"
)

// Kind distinguishes the records written back to storage for a conversation.
type Kind string

// Finalization kinds.
const (
	// KindValidator closes a conversation with the reference tags and vectors.
	KindValidator Kind = "validator"
	// KindWindow records the outcome of one window.
	KindWindow Kind = "window"
)

// Finalization is one record written back to storage.
type Finalization struct {
	GUID     string
	Identity string
	Kind     Kind
	Window   int // meaningful only for KindWindow
	BatchNum int64
	Payload  any
}

// ValidatorPayload is the final reference metadata of a conversation.
type ValidatorPayload struct {
	Tags    domain.TagSet  `json:"tags"`
	Vectors domain.Vectors `json:"vectors"`
}

// NewValidatorPayload builds a payload that always encodes as {"tags":[...],"vectors":{...}}.
func NewValidatorPayload(tags domain.TagSet, vectors domain.Vectors) ValidatorPayload {
	if vectors == nil {
		vectors = domain.Vectors{}
	}
	return ValidatorPayload{Tags: tags, Vectors: vectors}
}

// EmptyValidatorPayload is written when a conversation is rejected.
func EmptyValidatorPayload() ValidatorPayload {
	return ValidatorPayload{Tags: domain.NewTagSet(), Vectors: domain.Vectors{}}
}

// WindowPayload summarizes one window's dispatch and rewards.
type WindowPayload struct {
	Workers   []string           `json:"workers"`
	Responded []string           `json:"responded"`
	Rewards   map[string]float64 `json:"rewards"`
	Seed      uint64             `json:"seed"`
}
