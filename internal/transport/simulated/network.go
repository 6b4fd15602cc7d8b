package simulated

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/convscore/internal/domain"
	"github.com/kailas-cloud/convscore/internal/domain/window"
	"github.com/kailas-cloud/convscore/internal/domain/worker"
)

const (
	workerPrefix  = "sim-"
	windowKeyword = 8
)

// noiseTopics are off-topic tags weaker workers mix into their answers.
var noiseTopics = []string{"weather", "sports", "music", "food", "movies", "family", "work", "travel"}

// NetworkConfig controls the simulated worker pool.
type NetworkConfig struct {
	Count       int
	FailureRate float64
	MaxLatency  time.Duration
	Seed        uint64
	Dimensions  int
}

// Network is an in-process worker pool. Every answer is a deterministic function
// of (seed, guid, window index, worker id); worker sim-1 is the most accurate.
type Network struct {
	cfg    NetworkConfig
	ids    []string
	index  map[string]int
	logger *zap.Logger
}

// NewNetwork creates a simulated network with workers sim-1..sim-N.
func NewNetwork(cfg NetworkConfig, logger *zap.Logger) *Network {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Network{cfg: cfg, ids: make([]string, 0, cfg.Count), index: make(map[string]int, cfg.Count), logger: logger}
	for i := range cfg.Count {
		id := workerPrefix + strconv.Itoa(i+1)
		n.ids = append(n.ids, id)
		n.index[id] = i
	}
	return n
}

// Pool returns sim-1..sim-N.
func (n *Network) Pool() []string {
	return append([]string(nil), n.ids...)
}

// Submit answers one window after a simulated latency. Cancellation of ctx
// interrupts the wait.
func (n *Network) Submit(ctx context.Context, guid string, w window.Window, workerID string) (*worker.Result, error) {
	idx, ok := n.index[workerID]
	if !ok {
		return nil, fmt.Errorf("worker %q: %w", workerID, domain.ErrUnknownWorker)
	}
	rng := n.rng(guid, w.Index, workerID)

	if n.cfg.MaxLatency > 0 {
		delay := time.Duration(rng.Int64N(int64(n.cfg.MaxLatency) + 1))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("worker %s: %w", workerID, ctx.Err())
		case <-timer.C:
		}
	}

	if n.cfg.FailureRate > 0 && rng.Float64() < n.cfg.FailureRate {
		return nil, fmt.Errorf("worker %s dropped window %d: %w", workerID, w.Index, domain.ErrWorkerUnavailable)
	}

	tags := n.answer(rng, idx, Keywords(w.Lines, windowKeyword))
	ann := annotation(tags, n.cfg.Dimensions)
	n.logger.Debug("Simulated worker answered",
		zap.String("worker", workerID),
		zap.Int("window", w.Index),
		zap.Strings("tags", tags))
	return &worker.Result{WorkerID: workerID, Tags: ann.Tags, Vectors: ann.Vectors}, nil
}

// answer keeps each keyword with the worker's accuracy and adds noise topics
// with the complementary probability.
func (n *Network) answer(rng *rand.Rand, idx int, keywords []string) []string {
	accuracy := 1.0
	if n.cfg.Count > 1 {
		accuracy = 1 - 0.6*float64(idx)/float64(n.cfg.Count-1)
	}
	out := make([]string, 0, len(keywords)+2)
	for _, k := range keywords {
		if rng.Float64() < accuracy {
			out = append(out, k)
		}
	}
	for range 2 {
		if rng.Float64() >= accuracy {
			out = append(out, noiseTopics[rng.IntN(len(noiseTopics))])
		}
	}
	return out
}

func (n *Network) rng(guid string, windowIndex int, workerID string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.Join([]string{guid, strconv.Itoa(windowIndex), workerID}, "\x00")))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n.cfg.Seed)
	_, _ = h.Write(buf[:])
	s := h.Sum64()
	return rand.New(rand.NewPCG(s, s^n.cfg.Seed)) //nolint:gosec // simulation only
}
