package observability

import (
	"context"
	"errors"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records engine activity as Prometheus metrics.
type Metrics struct {
	RunsTotal      *prometheus.CounterVec
	RunsInFlight   prometheus.Gauge
	RunDuration    *prometheus.HistogramVec
	NodeExecutions *prometheus.CounterVec
	NodeDuration   *prometheus.HistogramVec
	ToolCalls      *prometheus.CounterVec
	ToolDuration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// Collectors already registered (for instance by a second engine in the same
// process) are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tendril_runs_total",
			Help: "Total number of finished runs",
		}, []string{"graph_id", "status"}),
		RunsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tendril_runs_in_flight",
			Help: "Number of runs currently executing",
		}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tendril_run_duration_seconds",
			Help:    "Duration of runs",
			Buckets: prometheus.DefBuckets,
		}, []string{"graph_id"}),
		NodeExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tendril_node_executions_total",
			Help: "Total number of node executions",
		}, []string{"graph_id", "node_id", "outcome"}),
		NodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tendril_node_duration_seconds",
			Help:    "Duration of node executions",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tendril_tool_calls_total",
			Help: "Total number of tool calls",
		}, []string{"tool_name", "outcome"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tendril_tool_duration_seconds",
			Help:    "Duration of tool executions",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool_name"}),
	}

	var errs []error
	m.RunsTotal = reuse(reg, m.RunsTotal, &errs)
	m.RunsInFlight = reuse(reg, m.RunsInFlight, &errs)
	m.RunDuration = reuse(reg, m.RunDuration, &errs)
	m.NodeExecutions = reuse(reg, m.NodeExecutions, &errs)
	m.NodeDuration = reuse(reg, m.NodeDuration, &errs)
	m.ToolCalls = reuse(reg, m.ToolCalls, &errs)
	m.ToolDuration = reuse(reg, m.ToolDuration, &errs)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// reuse registers c, returning the collector already registered under the
// same descriptor when there is one.
func reuse[C prometheus.Collector](reg prometheus.Registerer, c C, errs *[]error) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing
		}
	}
	*errs = append(*errs, err)
	return c
}

func outcome(failed bool) string {
	if failed {
		return "error"
	}
	return "success"
}

// Hooks returns lifecycle hooks feeding m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(_ context.Context, _ *domain.RunEvent) {
			m.RunsInFlight.Inc()
		},
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			m.RunsInFlight.Dec()
			m.RunsTotal.WithLabelValues(e.GraphID, string(e.Status)).Inc()
			m.RunDuration.WithLabelValues(e.GraphID).Observe(e.Duration.Seconds())
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeExecutions.WithLabelValues(e.GraphID, e.NodeID, outcome(e.Error != "")).Inc()
			m.NodeDuration.WithLabelValues(string(e.NodeKind)).Observe(e.Duration.Seconds())
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			m.ToolCalls.WithLabelValues(e.ToolName, outcome(e.IsError)).Inc()
			m.ToolDuration.WithLabelValues(e.ToolName).Observe(e.Duration.Seconds())
		},
	}
}
