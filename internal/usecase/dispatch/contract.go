package dispatch

import (
	"context"

	"github.com/kailas-cloud/convscore/internal/domain/window"
	"github.com/kailas-cloud/convscore/internal/domain/worker"
)

// Transport delivers one window to one worker and returns its analysis.
// Implementations should honor ctx; the dispatcher abandons calls that
// outlive the submission deadline.
type Transport interface {
	Submit(ctx context.Context, guid string, w window.Window, workerID string) (*worker.Result, error)
}
