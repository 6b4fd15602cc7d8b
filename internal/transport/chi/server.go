package chi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/convscore/internal/domain/reward"
	logpkg "github.com/kailas-cloud/convscore/internal/logger"
	"github.com/kailas-cloud/convscore/internal/metrics"
	healthuc "github.com/kailas-cloud/convscore/internal/usecase/health"
	"github.com/kailas-cloud/convscore/internal/usecase/orchestrator"
)

// HealthReporter aggregates component health.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}

// CycleSource exposes the most recent cycle report.
type CycleSource interface {
	Latest() (orchestrator.CycleReport, bool)
}

// ResultReader reads the finalize records stored for a conversation.
type ResultReader interface {
	Results(ctx context.Context, guid string) (map[string]json.RawMessage, error)
}

// RewardReader reads the reward vectors emitted for a conversation.
type RewardReader interface {
	Load(ctx context.Context, guid string) ([]reward.Vector, error)
}

// ErrorResponse is the JSON error body of the ops API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	CodeNotFound     = "not_found"
	CodeUnauthorized = "unauthorized"
	CodeInternal     = "internal_error"
)

// Server serves the operational endpoints of a running validator.
type Server struct {
	health  HealthReporter
	cycles  CycleSource
	results ResultReader
	rewards RewardReader
	metrics http.Handler
	logger  *zap.Logger
}

// NewServer creates the ops server. metricsHandler nil means promhttp.Handler().
func NewServer(health HealthReporter, cycles CycleSource, metricsHandler http.Handler, logger *zap.Logger) *Server {
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{health: health, cycles: cycles, metrics: metricsHandler, logger: logger}
}

// WithConversations enables the per-conversation read routes.
func (s *Server) WithConversations(results ResultReader, rewards RewardReader) *Server {
	s.results = results
	s.rewards = rewards
	return s
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", s.metrics)
	r.Get("/v1/cycles/latest", s.LatestCycle)
	if s.results != nil {
		r.Get("/v1/conversations/{guid}/results", s.ConversationResults)
	}
	if s.rewards != nil {
		r.Get("/v1/conversations/{guid}/rewards", s.ConversationRewards)
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	return r
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// LatestCycle handles GET /v1/cycles/latest.
func (s *Server) LatestCycle(w http.ResponseWriter, _ *http.Request) {
	rep, ok := s.cycles.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "no cycle has run yet")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ConversationResults handles GET /v1/conversations/{guid}/results.
func (s *Server) ConversationResults(w http.ResponseWriter, r *http.Request) {
	guid := chi.URLParam(r, "guid")
	results, err := s.results.Results(r.Context(), guid)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if len(results) == 0 {
		writeError(w, http.StatusNotFound, CodeNotFound, "no results for conversation "+guid)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type rewardsResponse struct {
	GUID    string          `json:"guid"`
	Windows []reward.Vector `json:"windows"`
}

// ConversationRewards handles GET /v1/conversations/{guid}/rewards.
// A conversation whose windows all went unanswered has an empty list.
func (s *Server) ConversationRewards(w http.ResponseWriter, r *http.Request) {
	guid := chi.URLParam(r, "guid")
	vectors, err := s.rewards.Load(r.Context(), guid)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if vectors == nil {
		vectors = []reward.Vector{}
	}
	writeJSON(w, http.StatusOK, rewardsResponse{GUID: guid, Windows: vectors})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	logpkg.FromContext(r.Context()).Error("Ops request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
