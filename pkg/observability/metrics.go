package observability

import (
	"context"
	"errors"
	"net/http"

	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the flow engine.
type Metrics struct {
	registry *prometheus.Registry

	NodeVisits       *prometheus.CounterVec
	FunctionCalls    *prometheus.CounterVec
	FunctionDuration *prometheus.HistogramVec
	ActionFailures   *prometheus.CounterVec
	LateEvents       prometheus.Counter
	SessionsActive   prometheus.Gauge
	SessionsTotal    *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "voiceflow"
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_visits_total",
				Help:      "Total number of node entries",
			},
			[]string{"node_id"},
		),
		FunctionCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "function_calls_total",
				Help:      "Total number of function calls by outcome",
			},
			[]string{"node_id", "function", "outcome"},
		),
		FunctionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "function_duration_seconds",
				Help:      "Duration of function call processing",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"function"},
		),
		ActionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "action_failures_total",
				Help:      "Total number of failed pre/post actions",
			},
			[]string{"kind", "phase"},
		),
		LateEvents: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "late_events_total",
				Help:      "Function calls received after termination",
			},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_active",
				Help:      "Number of active sessions",
			},
		),
		SessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_total",
				Help:      "Total number of finished sessions by final status",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.NodeVisits,
		m.FunctionCalls,
		m.FunctionDuration,
		m.ActionFailures,
		m.LateEvents,
		m.SessionsActive,
		m.SessionsTotal,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(_ context.Context, _ *domain.SessionEvent) {
			m.SessionsActive.Inc()
		},
		OnSessionEnd: func(_ context.Context, e *domain.SessionEvent) {
			m.SessionsActive.Dec()
			status := string(e.Status)
			if e.Status != domain.StatusTerminated {
				status = "abandoned"
			}
			m.SessionsTotal.WithLabelValues(status).Inc()
		},
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.NodeID).Inc()
		},
		OnFunctionReturn: func(_ context.Context, e *domain.FunctionEvent) {
			m.FunctionCalls.WithLabelValues(e.NodeID, e.Function, outcomeLabel(e)).Inc()
			m.FunctionDuration.WithLabelValues(e.Function).Observe(e.Duration.Seconds())
		},
		OnAction: func(_ context.Context, e *domain.ActionEvent) {
			if e.Err != nil {
				m.ActionFailures.WithLabelValues(string(e.Kind), e.Phase).Inc()
			}
		},
		OnLateEvent: func(_ context.Context, _ *domain.FunctionEvent) {
			m.LateEvents.Inc()
		},
	}
}

// outcomeLabel splits rejections by cause so dashboards can tell
// model mistakes from handler failures.
func outcomeLabel(e *domain.FunctionEvent) string {
	if e.Outcome != domain.OutcomeRejected || e.Err == nil {
		return string(e.Outcome)
	}
	var (
		unknown *domain.UnknownFunctionError
		invalid *domain.ArgumentValidationError
		handler *domain.HandlerExecutionError
	)
	switch {
	case errors.As(e.Err, &unknown):
		return "unknown_function"
	case errors.As(e.Err, &invalid):
		return "invalid_arguments"
	case errors.As(e.Err, &handler):
		return "handler_error"
	}
	return string(e.Outcome)
}
