package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sajidfayaz/redis-ratelimiter/ratelimiter"
)

const (
	metricNamespace = "ratelimiter"
	metricSubsystem = "store"
)

// InstrumentedStore decorates a ratelimiter.Store with Prometheus metrics.
// Every operation is counted, its failures are counted, and its latency is
// observed, all labelled by operation name.
type InstrumentedStore struct {
	next ratelimiter.Store

	ops       *prometheus.CounterVec
	errs      *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

var _ ratelimiter.Store = (*InstrumentedStore)(nil)

// NewInstrumented wraps next so that its operations are reported to reg.
// Pass prometheus.DefaultRegisterer to use the default registry.
func NewInstrumented(next ratelimiter.Store, reg prometheus.Registerer) *InstrumentedStore {
	return &InstrumentedStore{
		next: next,
		ops: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: metricSubsystem,
			Name:      "ops_total",
			Help:      "Total number of store operations.",
		}, []string{"op"}),
		errs: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: metricSubsystem,
			Name:      "errors_total",
			Help:      "Total number of failed store operations.",
		}, []string{"op"}),
		durations: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Subsystem: metricSubsystem,
			Name:      "op_duration_seconds",
			Help:      "Store operation latency in seconds.",
		}, []string{"op"}),
	}
}

func (s *InstrumentedStore) RemoveRange(ctx context.Context, key string, min, max int64) error {
	return s.instrument("remove_range", func() error {
		return s.next.RemoveRange(ctx, key, min, max)
	})
}

func (s *InstrumentedStore) Count(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.instrument("count", func() error {
		var err error
		n, err = s.next.Count(ctx, key)
		return err
	})

	return n, err
}

func (s *InstrumentedStore) Insert(ctx context.Context, key string, score int64, member string) error {
	return s.instrument("insert", func() error {
		return s.next.Insert(ctx, key, score, member)
	})
}

func (s *InstrumentedStore) SetExpiry(ctx context.Context, key string, ttl time.Duration) error {
	return s.instrument("set_expiry", func() error {
		return s.next.SetExpiry(ctx, key, ttl)
	})
}

func (s *InstrumentedStore) instrument(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	s.durations.WithLabelValues(op).Observe(time.Since(start).Seconds())
	s.ops.WithLabelValues(op).Inc()
	if err != nil {
		s.errs.WithLabelValues(op).Inc()
	}

	return err
}
