package worker

import (
	"time"

	"github.com/kailas-cloud/convscore/internal/domain"
)

// Result is one worker's analysis of one window.
type Result struct {
	WorkerID string
	Tags     domain.TagSet
	Vectors  domain.Vectors
}

// Status is the outcome of a single submission.
type Status string

// Submission outcome values.
const (
	StatusOK      Status = "ok"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
)

// Outcome records how a single worker submission resolved.
type Outcome struct {
	workerID string
	status   Status
	latency  time.Duration
	err      error
}

// NewOK creates a successful outcome.
func NewOK(workerID string, latency time.Duration) Outcome {
	return Outcome{workerID: workerID, status: StatusOK, latency: latency}
}

// NewFailure creates a failed outcome.
func NewFailure(workerID string, status Status, latency time.Duration, err error) Outcome {
	return Outcome{workerID: workerID, status: status, latency: latency, err: err}
}

// WorkerID returns the worker identifier.
func (o Outcome) WorkerID() string { return o.workerID }

// Status returns the submission outcome.
func (o Outcome) Status() Status { return o.status }

// Latency returns how long the submission took.
func (o Outcome) Latency() time.Duration { return o.latency }

// Err returns the error, if any.
func (o Outcome) Err() error { return o.err }
