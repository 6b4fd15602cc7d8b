package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoWorkAvailable signals that storage had no conversation to reserve.
	ErrNoWorkAvailable = errors.New("no work available")
	// ErrEmptyConversation signals a reserved conversation without lines.
	ErrEmptyConversation = errors.New("empty conversation")
	// ErrAnnotationFailed signals that the tagging engine failed or returned nothing.
	ErrAnnotationFailed = errors.New("annotation failed")
	// ErrInsufficientTags signals too few reference tags to evaluate workers.
	ErrInsufficientTags = errors.New("insufficient tags")
	// ErrInsufficientWindows signals a conversation too short to split into enough windows.
	ErrInsufficientWindows = errors.New("insufficient windows")
	// ErrWorkerUnavailable signals a transport error or timeout for one worker.
	ErrWorkerUnavailable = errors.New("worker unavailable")
	// ErrAllWorkersUnavailable signals that no selected worker responded for a window.
	ErrAllWorkersUnavailable = errors.New("all workers unavailable")
	// ErrUnknownWorker signals a worker id the network does not know.
	ErrUnknownWorker = errors.New("unknown worker")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrInvalidConversation signals a malformed stored conversation.
	ErrInvalidConversation = errors.New("invalid conversation")
	// ErrInvalidConfig signals a configuration that failed validation.
	ErrInvalidConfig = errors.New("invalid config")
)

// AbortError carries the pipeline state in which a conversation was rejected.
type AbortError struct {
	State string
	Err   error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("aborted in %s: %s", e.State, e.Err.Error())
}

func (e *AbortError) Unwrap() error { return e.Err }

// NewAbort wraps a data-sufficiency failure with the state it occurred in.
func NewAbort(state string, err error) error {
	return &AbortError{State: state, Err: err}
}
