// Package metrics exposes prometheus counters for the embedding and
// recommendation pipeline.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jobmatch"

// Label values
const (
	ResultHit  = "hit"
	ResultMiss = "miss"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	SourceQuery   = "query"
	SourceListing = "listing"

	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing,
// so components can be built without instrumentation in tests.
type Metrics struct {
	CacheLookups      *prometheus.CounterVec
	ProviderCalls     *prometheus.CounterVec
	Retries           prometheus.Counter
	DegradedVectors   *prometheus.CounterVec
	Recommendations   *prometheus.CounterVec
	RecommendDuration prometheus.Histogram

	registry *prometheus.Registry
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, in a private registry.
func New() *Metrics {
	m := &Metrics{
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Embedding cache lookups by result (hit, miss)",
			},
			[]string{"result"},
		),
		ProviderCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "calls_total",
				Help:      "Remote embedding requests by final outcome, retries excluded",
			},
			[]string{"outcome"},
		),
		Retries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "retries_total",
				Help:      "Remote embedding attempts that were retried",
			},
		),
		DegradedVectors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "recommender",
				Name:      "degraded_vectors_total",
				Help:      "Embeddings replaced by the zero vector, by source (query, listing)",
			},
			[]string{"source"},
		),
		Recommendations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "recommender",
				Name:      "runs_total",
				Help:      "Recommendation runs by status",
			},
			[]string{"status"},
		),
		RecommendDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "recommender",
				Name:      "duration_seconds",
				Help:      "Wall time of a recommendation run",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.CacheLookups,
		m.ProviderCalls,
		m.Retries,
		m.DegradedVectors,
		m.Recommendations,
		m.RecommendDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues(ResultHit).Inc()
		return
	}
	m.CacheLookups.WithLabelValues(ResultMiss).Inc()
}

func (m *Metrics) ProviderCall(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ProviderCalls.WithLabelValues(OutcomeFailure).Inc()
		return
	}
	m.ProviderCalls.WithLabelValues(OutcomeSuccess).Inc()
}

func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}

func (m *Metrics) Degraded(source string) {
	if m == nil {
		return
	}
	m.DegradedVectors.WithLabelValues(source).Inc()
}

// ObserveRecommend records the duration and status of one run.
func (m *Metrics) ObserveRecommend(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.RecommendDuration.Observe(d.Seconds())
	if err != nil {
		m.Recommendations.WithLabelValues(StatusError).Inc()
		return
	}
	m.Recommendations.WithLabelValues(StatusOK).Inc()
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}
