package workernet

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/convscore/internal/domain"
	domconv "github.com/kailas-cloud/convscore/internal/domain/conversation"
	"github.com/kailas-cloud/convscore/internal/domain/window"
	"github.com/kailas-cloud/convscore/internal/domain/worker"
	"github.com/kailas-cloud/convscore/internal/version"
)

const windowsPath = "/v1/windows"

// MaxResponseBytes caps a worker reply. Larger bodies fail the submission.
const MaxResponseBytes = 4 << 20

// Endpoint is a reachable worker.
type Endpoint struct {
	ID  string
	URL string
}

type windowRequest struct {
	GUID        string         `json:"guid"`
	WindowIndex int            `json:"window_index"`
	Lines       []domconv.Line `json:"lines"`
}

type windowResponse struct {
	Tags    []string             `json:"tags"`
	Vectors map[string][]float32 `json:"vectors"`
}

// Network delivers windows to live workers over HTTP.
type Network struct {
	http      *resty.Client
	endpoints map[string]string
	ids       []string
	logger    *zap.Logger
}

// Option configures a Network.
type Option func(*Network)

// WithRetries retries gateway errors up to n times within the submission
// deadline. n <= 0 disables retries.
func WithRetries(n int, wait time.Duration) Option {
	return func(nw *Network) {
		if n <= 0 {
			return
		}
		nw.http.SetRetryCount(n)
		nw.http.SetRetryWaitTime(wait)
		nw.http.AddRetryCondition(func(resp *resty.Response, _ error) bool {
			if resp == nil {
				return false
			}
			switch resp.StatusCode() {
			case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
				return true
			default:
				return false
			}
		})
	}
}

// New creates a live worker network. Endpoint ids are the worker identities.
func New(endpoints []Endpoint, logger *zap.Logger, opts ...Option) *Network {
	if logger == nil {
		logger = zap.NewNop()
	}
	nw := &Network{
		http: resty.New().
			SetHeader("User-Agent", "convscore/"+version.Version).
			SetResponseBodyLimit(MaxResponseBytes),
		endpoints: make(map[string]string, len(endpoints)),
		ids:       make([]string, 0, len(endpoints)),
		logger:    logger,
	}
	for _, e := range endpoints {
		if _, dup := nw.endpoints[e.ID]; dup {
			continue
		}
		nw.endpoints[e.ID] = strings.TrimRight(e.URL, "/")
		nw.ids = append(nw.ids, e.ID)
	}
	for _, opt := range opts {
		opt(nw)
	}
	return nw
}

// Pool returns the configured worker ids in configuration order.
func (nw *Network) Pool() []string {
	return append([]string(nil), nw.ids...)
}

// Submit sends one window to one worker and decodes its analysis.
func (nw *Network) Submit(ctx context.Context, guid string, w window.Window, workerID string) (*worker.Result, error) {
	base, ok := nw.endpoints[workerID]
	if !ok {
		return nil, fmt.Errorf("worker %q: %w", workerID, domain.ErrUnknownWorker)
	}

	var out windowResponse
	resp, err := nw.http.R().
		SetContext(ctx).
		SetBody(windowRequest{GUID: guid, WindowIndex: w.Index, Lines: w.Lines}).
		SetResult(&out).
		Post(base + windowsPath)
	if err != nil {
		return nil, fmt.Errorf("submit window %d to %s: %w", w.Index, workerID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("worker %s answered %d: %w", workerID, resp.StatusCode(), domain.ErrWorkerUnavailable)
	}

	nw.logger.Debug("Worker answered",
		zap.String("worker", workerID),
		zap.Int("window", w.Index),
		zap.Int("tags", len(out.Tags)),
		zap.Duration("latency", resp.Time()))

	return &worker.Result{
		WorkerID: workerID,
		Tags:     domain.NewTagSet(out.Tags...),
		Vectors:  domain.NewVectors(out.Vectors),
	}, nil
}
