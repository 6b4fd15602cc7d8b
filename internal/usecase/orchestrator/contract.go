package orchestrator

import (
	"context"

	"github.com/kailas-cloud/convscore/internal/domain"
	"github.com/kailas-cloud/convscore/internal/domain/conversation"
	"github.com/kailas-cloud/convscore/internal/domain/reward"
	"github.com/kailas-cloud/convscore/internal/domain/score"
	"github.com/kailas-cloud/convscore/internal/domain/window"
	"github.com/kailas-cloud/convscore/internal/domain/worker"
)

// Storage reserves conversations and records their outcome.
type Storage interface {
	// Reserve returns domain.ErrNoWorkAvailable when the queue is empty.
	Reserve(ctx context.Context, identity string) (conversation.Conversation, error)
	Finalize(ctx context.Context, f conversation.Finalization) error
}

// Annotator produces reference tags and vectors for a whole conversation.
type Annotator interface {
	Annotate(ctx context.Context, conv conversation.Conversation) (*domain.Annotation, error)
}

// Segmenter splits lines into windows.
type Segmenter interface {
	Windows(lines []conversation.Line) ([]window.Window, error)
}

// WorkerPool lists the workers currently eligible for selection.
type WorkerPool interface {
	Pool() []string
}

// Selector picks workers for one window and reports the seed it used.
type Selector interface {
	Select(pool []string) ([]string, uint64)
}

// Dispatcher fans a window out to workers and returns the successful results.
type Dispatcher interface {
	Dispatch(ctx context.Context, guid string, w window.Window, workerIDs []string) []worker.Result
}

// Scorer compares worker results with the reference.
type Scorer interface {
	ScoreAll(ref *domain.ReferenceMetadata, results []worker.Result) []score.Record
}

// RewardCalculator turns score records into a reward vector.
type RewardCalculator interface {
	Calculate(windowIndex int, records []score.Record) reward.Vector
}

// RewardSink receives emitted reward vectors.
type RewardSink interface {
	Submit(ctx context.Context, guid string, v reward.Vector) error
}
