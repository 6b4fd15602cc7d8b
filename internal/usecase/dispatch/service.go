package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/convscore/internal/domain"
	"github.com/kailas-cloud/convscore/internal/domain/window"
	"github.com/kailas-cloud/convscore/internal/domain/worker"
	"github.com/kailas-cloud/convscore/internal/metrics"
)

const defaultTimeout = 30 * time.Second

// Dispatcher fans a window out to selected workers in parallel.
// A failing worker never cancels its siblings.
type Dispatcher struct {
	transport Transport
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a dispatcher over the given transport.
func New(transport Transport, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{transport: transport, timeout: defaultTimeout, logger: logger}
}

// WithTimeout sets the per-submission deadline.
func (d *Dispatcher) WithTimeout(timeout time.Duration) *Dispatcher {
	if timeout > 0 {
		d.timeout = timeout
	}
	return d
}

// Timeout returns the per-submission deadline.
func (d *Dispatcher) Timeout() time.Duration { return d.timeout }

// Dispatch submits w to every worker and returns the successful results in
// completion order. Failed, panicking and timed-out workers are logged and
// dropped. The returned slice is never nil.
func (d *Dispatcher) Dispatch(ctx context.Context, guid string, w window.Window, workerIDs []string) []worker.Result {
	var (
		mu      sync.Mutex
		results = make([]worker.Result, 0, len(workerIDs))
	)

	var g errgroup.Group
	for _, id := range workerIDs {
		g.Go(func() error {
			res, outcome := d.submit(ctx, guid, w, id)
			record(outcome)
			if outcome.Status() != worker.StatusOK {
				d.logger.Warn("Worker submission failed",
					zap.String("worker_id", outcome.WorkerID()),
					zap.Int("window", w.Index),
					zap.String("status", string(outcome.Status())),
					zap.Duration("latency", outcome.Latency()),
					zap.Error(outcome.Err()),
				)
				return nil
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

type reply struct {
	res *worker.Result
	err error
}

// submit bounds one transport call by the per-submission deadline. The call
// runs on its own goroutine, so a transport that ignores ctx is abandoned
// when the deadline passes; its late reply lands in a buffered channel.
func (d *Dispatcher) submit(
	ctx context.Context, guid string, w window.Window, workerID string,
) (worker.Result, worker.Outcome) {
	subCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan reply, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- reply{err: fmt.Errorf("transport panic: %v: %w", p, domain.ErrWorkerUnavailable)}
			}
		}()
		res, err := d.transport.Submit(subCtx, guid, w, workerID)
		done <- reply{res: res, err: err}
	}()

	var rep reply
	select {
	case rep = <-done:
	case <-subCtx.Done():
		return worker.Result{}, worker.NewFailure(workerID, timeoutStatus(subCtx), time.Since(start), subCtx.Err())
	}
	latency := time.Since(start)

	switch {
	case rep.err == nil && rep.res == nil:
		return worker.Result{}, worker.NewFailure(workerID, worker.StatusError, latency,
			fmt.Errorf("empty response: %w", domain.ErrWorkerUnavailable))
	case rep.err == nil && subCtx.Err() != nil:
		// Late answer after the deadline still counts as a timeout.
		return worker.Result{}, worker.NewFailure(workerID, worker.StatusTimeout, latency, subCtx.Err())
	case rep.err == nil:
		r := *rep.res
		r.WorkerID = workerID
		return r, worker.NewOK(workerID, latency)
	case errors.Is(rep.err, context.DeadlineExceeded) || errors.Is(subCtx.Err(), context.DeadlineExceeded):
		return worker.Result{}, worker.NewFailure(workerID, worker.StatusTimeout, latency, rep.err)
	default:
		return worker.Result{}, worker.NewFailure(workerID, worker.StatusError, latency, rep.err)
	}
}

// timeoutStatus maps an expired submission context to its outcome. Parent
// cancellation is a plain error, only the deadline is a timeout.
func timeoutStatus(ctx context.Context) worker.Status {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return worker.StatusTimeout
	}
	return worker.StatusError
}

func record(o worker.Outcome) {
	status := string(o.Status())
	metrics.WorkerSubmissionsTotal.WithLabelValues(status).Inc()
	metrics.WorkerSubmissionDuration.WithLabelValues(status).Observe(o.Latency().Seconds())
}
