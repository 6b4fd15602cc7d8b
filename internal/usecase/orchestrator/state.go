package orchestrator

// State is a step of the per-conversation pipeline.
type State int

// Pipeline states.
const (
	StateIdle State = iota
	StateReserving
	StateValidatingTags
	StateSegmenting
	StateDispatching
	StateFinalized
	StateAborted
)

var stateNames = [...]string{
	StateIdle:           "idle",
	StateReserving:      "reserving",
	StateValidatingTags: "validating_tags",
	StateSegmenting:     "segmenting",
	StateDispatching:    "dispatching",
	StateFinalized:      "finalized",
	StateAborted:        "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText renders the state name in JSON reports.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
