package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/convscore/internal/domain"
	"github.com/kailas-cloud/convscore/internal/domain/conversation"
	"github.com/kailas-cloud/convscore/internal/domain/reward"
	"github.com/kailas-cloud/convscore/internal/domain/score"
	"github.com/kailas-cloud/convscore/internal/domain/window"
	"github.com/kailas-cloud/convscore/internal/domain/worker"
	"github.com/kailas-cloud/convscore/internal/logger"
	"github.com/kailas-cloud/convscore/internal/metrics"
)

// Deps are the collaborators of one validation pipeline.
type Deps struct {
	Storage    Storage
	Annotator  Annotator
	Segmenter  Segmenter
	Pool       WorkerPool
	Selector   Selector
	Dispatcher Dispatcher
	Scorer     Scorer
	Rewards    RewardCalculator
	Sink       RewardSink
}

// Orchestrator drives one conversation at a time through the pipeline.
type Orchestrator struct {
	deps     Deps
	identity string
	minTags  int
	observer metrics.Observer
	logger   *zap.Logger

	idleBackoffMax time.Duration
	cyclePause     time.Duration
	newID          func() string

	batch  atomic.Int64
	mu     sync.RWMutex
	latest *CycleReport
}

// New creates an orchestrator acting as identity.
func New(deps Deps, identity string, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		deps:           deps,
		identity:       identity,
		minTags:        1,
		observer:       metrics.NopObserver{},
		logger:         logger,
		idleBackoffMax: time.Minute,
		newID:          uuid.NewString,
	}
}

// WithMinTags sets the minimum number of reference tags a conversation needs.
func (o *Orchestrator) WithMinTags(n int) *Orchestrator {
	if n > 0 {
		o.minTags = n
	}
	return o
}

// WithObserver sets the operation observer.
func (o *Orchestrator) WithObserver(obs metrics.Observer) *Orchestrator {
	if obs != nil {
		o.observer = obs
	}
	return o
}

// WithIdleBackoff caps the wait between cycles that found no work.
func (o *Orchestrator) WithIdleBackoff(maxWait time.Duration) *Orchestrator {
	if maxWait > 0 {
		o.idleBackoffMax = maxWait
	}
	return o
}

// WithCyclePause sets a fixed pause after every non-idle cycle.
func (o *Orchestrator) WithCyclePause(d time.Duration) *Orchestrator {
	if d >= 0 {
		o.cyclePause = d
	}
	return o
}

// WithIDGenerator overrides cycle id generation.
func (o *Orchestrator) WithIDGenerator(fn func() string) *Orchestrator {
	if fn != nil {
		o.newID = fn
	}
	return o
}

// Latest returns the report of the most recent completed cycle.
func (o *Orchestrator) Latest() (CycleReport, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.latest == nil {
		return CycleReport{}, false
	}
	return *o.latest, true
}

func (o *Orchestrator) setLatest(r CycleReport) {
	o.mu.Lock()
	o.latest = &r
	o.mu.Unlock()
}

// RunCycle processes at most one conversation. The returned error is non-nil
// only for infrastructure failures; rejected conversations are reported
// through CycleReport.State and AbortReason.
func (o *Orchestrator) RunCycle(ctx context.Context) (CycleReport, error) {
	rep := CycleReport{CycleID: o.newID(), StartedAt: time.Now(), State: StateReserving}
	log := o.logger.With(zap.String("cycle_id", rep.CycleID))

	ctx, usage := domain.NewContextWithUsage(ctx)
	err := o.runCycle(logger.ContextWithLogger(ctx, log), &rep)

	rep.TokensUsed = usage.TotalTokens
	rep.Duration = time.Since(rep.StartedAt)
	metrics.CyclesTotal.WithLabelValues(rep.State.String()).Inc()
	o.setLatest(rep)
	if err != nil {
		log.Error("Cycle failed", zap.String("state", rep.State.String()), zap.Error(err))
		return rep, err
	}
	return rep, nil
}

func (o *Orchestrator) runCycle(ctx context.Context, rep *CycleReport) error {
	conv, err := metrics.Track(o.observer, "reserve", func() (conversation.Conversation, error) {
		return o.deps.Storage.Reserve(ctx, o.identity)
	})
	if errors.Is(err, domain.ErrNoWorkAvailable) {
		rep.State = StateIdle
		return nil
	}
	if err != nil {
		rep.State = StateAborted
		return fmt.Errorf("reserve conversation: %w", err)
	}

	rep.BatchNum = o.batch.Add(1)
	rep.ConversationGUID = conv.GUID()
	ctx, log := logger.With(ctx, zap.String("conversation_guid", conv.GUID()))
	log.Info("Conversation reserved", zap.Int("lines", conv.NumLines()), zap.Int64("batch_num", rep.BatchNum))

	ref, windows, abort := o.prepare(ctx, conv, rep)
	if abort != nil {
		return o.abort(ctx, conv, rep, abort)
	}

	rep.State = StateDispatching
	rep.Windows = make([]WindowReport, 0, len(windows))
	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			// Unfinished conversations are released by the reservation TTL.
			rep.State = StateAborted
			rep.AbortReason = err.Error()
			return fmt.Errorf("cycle interrupted: %w", err)
		}
		rep.Windows = append(rep.Windows, o.processWindow(ctx, conv, rep.BatchNum, ref, w))
	}

	err = metrics.TrackErr(o.observer, "finalize", func() error {
		return o.deps.Storage.Finalize(ctx, conversation.Finalization{
			GUID:     conv.GUID(),
			Identity: o.identity,
			Kind:     conversation.KindValidator,
			BatchNum: rep.BatchNum,
			Payload:  conversation.NewValidatorPayload(ref.Tags(), ref.Vectors()),
		})
	})
	if err != nil {
		rep.State = StateAborted
		return fmt.Errorf("finalize conversation: %w", err)
	}
	rep.State = StateFinalized
	log.Info("Conversation finalized",
		zap.Int("windows", len(rep.Windows)),
		zap.Int("emitted", countEmitted(rep.Windows)),
	)
	return nil
}

// prepare annotates and segments the conversation. A non-nil error is a
// data-sufficiency abort.
func (o *Orchestrator) prepare(
	ctx context.Context, conv conversation.Conversation, rep *CycleReport,
) (*domain.ReferenceMetadata, []window.Window, error) {
	rep.State = StateValidatingTags
	if conv.NumLines() == 0 {
		return nil, nil, domain.NewAbort(rep.State.String(), domain.ErrEmptyConversation)
	}

	ann, err := metrics.Track(o.observer, "annotate", func() (*domain.Annotation, error) {
		return o.deps.Annotator.Annotate(ctx, conv)
	})
	switch {
	case err != nil:
		return nil, nil, domain.NewAbort(rep.State.String(), fmt.Errorf("%w: %w", domain.ErrAnnotationFailed, err))
	case ann == nil || !ann.Success:
		return nil, nil, domain.NewAbort(rep.State.String(), domain.ErrAnnotationFailed)
	case ann.Tags.Len() < o.minTags:
		return nil, nil, domain.NewAbort(rep.State.String(), fmt.Errorf(
			"%d tags, need %d: %w", ann.Tags.Len(), o.minTags, domain.ErrInsufficientTags))
	}
	ref := domain.NewReferenceMetadata(ann.Tags, ann.Vectors, conv.Participants())
	rep.ReferenceTags = ref.Tags().Sorted()

	rep.State = StateSegmenting
	windows, err := metrics.Track(o.observer, "segment", func() ([]window.Window, error) {
		return o.deps.Segmenter.Windows(conv.Lines())
	})
	if err != nil {
		return nil, nil, domain.NewAbort(rep.State.String(), err)
	}
	return ref, windows, nil
}

func (o *Orchestrator) processWindow(
	ctx context.Context, conv conversation.Conversation, batchNum int64,
	ref *domain.ReferenceMetadata, w window.Window,
) WindowReport {
	log := logger.FromContext(ctx).With(zap.Int("window", w.Index))

	selected, seed := o.deps.Selector.Select(o.deps.Pool.Pool())
	wr := WindowReport{Index: w.Index, Seed: seed, Workers: selected, Responded: []string{}}

	results, _ := metrics.Track(o.observer, "dispatch", func() ([]worker.Result, error) {
		return o.deps.Dispatcher.Dispatch(ctx, conv.GUID(), w, selected), nil
	})
	for _, r := range results {
		wr.Responded = append(wr.Responded, r.WorkerID)
	}
	sort.Strings(wr.Responded)

	if len(results) == 0 {
		metrics.WindowsTotal.WithLabelValues("no_response").Inc()
		log.Warn("No worker responded, skipping rewards",
			zap.Strings("workers", selected),
			zap.Error(domain.ErrAllWorkersUnavailable),
		)
		return wr
	}

	records, _ := metrics.Track(o.observer, "score", func() ([]score.Record, error) {
		return o.deps.Scorer.ScoreAll(ref, results), nil
	})
	vec, _ := metrics.Track(o.observer, "reward", func() (reward.Vector, error) {
		return o.deps.Rewards.Calculate(w.Index, records), nil
	})
	wr.Rewards = vec.Rewards
	wr.Emitted = true
	metrics.WindowsTotal.WithLabelValues("rewarded").Inc()

	log.Info("Emissions for window",
		zap.Int("window", w.Index),
		zap.Int("responded", len(results)),
		zap.Any("rewards", vec.Rewards),
	)

	err := metrics.TrackErr(o.observer, "submit_reward", func() error {
		return o.deps.Sink.Submit(ctx, conv.GUID(), vec)
	})
	if err != nil {
		log.Error("Reward submission failed", zap.Error(err))
	}

	err = metrics.TrackErr(o.observer, "finalize", func() error {
		return o.deps.Storage.Finalize(ctx, conversation.Finalization{
			GUID:     conv.GUID(),
			Identity: o.identity,
			Kind:     conversation.KindWindow,
			Window:   w.Index,
			BatchNum: batchNum,
			Payload: conversation.WindowPayload{
				Workers:   wr.Workers,
				Responded: wr.Responded,
				Rewards:   vec.Rewards,
				Seed:      seed,
			},
		})
	})
	if err != nil {
		log.Error("Window finalize failed", zap.Error(err))
	}
	return wr
}

// abort writes the empty validator record so the conversation is released.
func (o *Orchestrator) abort(
	ctx context.Context, conv conversation.Conversation, rep *CycleReport, cause error,
) error {
	rep.State = StateAborted
	rep.AbortReason = cause.Error()
	log := logger.FromContext(ctx)
	log.Warn("Conversation rejected", zap.Error(cause))

	// Release the reservation even if the cycle context is cancelled.
	fctx := context.WithoutCancel(ctx)
	err := metrics.TrackErr(o.observer, "finalize", func() error {
		return o.deps.Storage.Finalize(fctx, conversation.Finalization{
			GUID:     conv.GUID(),
			Identity: o.identity,
			Kind:     conversation.KindValidator,
			BatchNum: rep.BatchNum,
			Payload:  conversation.EmptyValidatorPayload(),
		})
	})
	if err != nil {
		return fmt.Errorf("finalize rejected conversation: %w", err)
	}
	return nil
}

func countEmitted(ws []WindowReport) int {
	n := 0
	for _, w := range ws {
		if w.Emitted {
			n++
		}
	}
	return n
}
