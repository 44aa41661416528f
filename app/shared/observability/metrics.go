package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the recorder shared by the venue, task and reassignment services.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
	// RecordDispatch counts how a reassignment was executed: sync, queued, no_change or failed.
	RecordDispatch(ctx context.Context, mode string)
	// RecordPipelineStage counts each orchestrator stage outcome.
	RecordPipelineStage(ctx context.Context, stage, outcome string)
}

type prometheusMetrics struct {
	attempts  *prometheus.CounterVec
	successes *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	dispatch  *prometheus.CounterVec
	stages    *prometheus.CounterVec
}

// NewPrometheusMetrics registers the venue engine collectors on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) Metrics {
	m := &prometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue_engine",
			Name:      "operation_attempts_total",
			Help:      "Service operations started.",
		}, []string{"operation", "service"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue_engine",
			Name:      "operation_success_total",
			Help:      "Service operations that completed without an infrastructure error.",
		}, []string{"operation", "service"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue_engine",
			Name:      "operation_failure_total",
			Help:      "Service operations that returned an error.",
		}, []string{"operation", "service"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "venue_engine",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "service"}),
		dispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue_engine",
			Name:      "reassignment_dispatch_total",
			Help:      "Reassignment requests by execution mode.",
		}, []string{"mode"}),
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue_engine",
			Name:      "reassignment_stage_total",
			Help:      "Reassignment pipeline stage outcomes.",
		}, []string{"stage", "outcome"}),
	}
	reg.MustRegister(m.attempts, m.successes, m.failures, m.duration, m.dispatch, m.stages)
	return m
}

func (m *prometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.attempts.WithLabelValues(operation, service).Inc()
}

func (m *prometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.successes.WithLabelValues(operation, service).Inc()
}

func (m *prometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.failures.WithLabelValues(operation, service).Inc()
}

func (m *prometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.duration.WithLabelValues(operation, service).Observe(duration.Seconds())
}

func (m *prometheusMetrics) RecordDispatch(_ context.Context, mode string) {
	m.dispatch.WithLabelValues(mode).Inc()
}

func (m *prometheusMetrics) RecordPipelineStage(_ context.Context, stage, outcome string) {
	m.stages.WithLabelValues(stage, outcome).Inc()
}

type noopMetrics struct{}

// NewNoop returns a Metrics that records nothing.
func NewNoop() Metrics { return noopMetrics{} }

func (noopMetrics) RecordOperationAttempt(context.Context, string, string)                 {}
func (noopMetrics) RecordOperationSuccess(context.Context, string, string)                 {}
func (noopMetrics) RecordOperationFailure(context.Context, string, string)                 {}
func (noopMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (noopMetrics) RecordDispatch(context.Context, string)                                 {}
func (noopMetrics) RecordPipelineStage(context.Context, string, string)                    {}
