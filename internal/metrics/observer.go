package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Observer receives one event per wrapped operation. Implementations must not
// influence the operation's result.
type Observer interface {
	Observe(op string, start time.Time, err error)
}

// NopObserver discards all events.
type NopObserver struct{}

// Observe implements Observer.
func (NopObserver) Observe(string, time.Time, error) {}

// Track runs fn and reports it to o under op. The result and error of fn are
// returned untouched.
func Track[T any](o Observer, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	if o != nil {
		o.Observe(op, start, err)
	}
	return v, err
}

// TrackErr is Track for operations that only return an error.
func TrackErr(o Observer, op string, fn func() error) error {
	_, err := Track(o, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// operationMetrics holds per-operation collectors.
type operationMetrics struct {
	calls    *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newOperationMetrics(reg prometheus.Registerer, node string) (*operationMetrics, error) {
	constLabels := prometheus.Labels{"node": node}
	m := &operationMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "operation",
			Name:        "calls_total",
			Help:        "Total pipeline operation calls by operation and status.",
			ConstLabels: constLabels,
		}, []string{"operation", "status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "operation",
			Name:        "errors_total",
			Help:        "Total failed pipeline operation calls.",
			ConstLabels: constLabels,
		}, []string{"operation"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "operation",
			Name:        "duration_seconds",
			Help:        "Pipeline operation duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"operation", "status"}),
	}
	if err := registerOrReuse(reg, &m.calls); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.errors); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("register metric: %w", err)
	}
	return nil
}

// PromObserver records operation events in Prometheus and, optionally,
// as JSON lines in a debug sink.
type PromObserver struct {
	node    string
	metrics *operationMetrics
	debug   *zap.Logger
}

// NewPromObserver creates an observer registered on reg. debug may be nil.
func NewPromObserver(reg prometheus.Registerer, node string, debug *zap.Logger) (*PromObserver, error) {
	m, err := newOperationMetrics(reg, node)
	if err != nil {
		return nil, err
	}
	return &PromObserver{node: node, metrics: m, debug: debug}, nil
}

// Observe implements Observer.
func (o *PromObserver) Observe(op string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
		o.metrics.errors.WithLabelValues(op).Inc()
	}
	o.metrics.calls.WithLabelValues(op, status).Inc()
	o.metrics.duration.WithLabelValues(op, status).Observe(dur.Seconds())

	if o.debug != nil {
		o.debug.Info("operation",
			zap.String("operation", op),
			zap.String("node", o.node),
			zap.Time("start_time", start),
			zap.Duration("duration", dur),
			zap.String("status", status),
		)
	}
}
