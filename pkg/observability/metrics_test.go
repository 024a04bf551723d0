package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	ctx := context.Background()
	h := m.Hooks()
	base := domain.EventBase{RunID: "r1", GraphID: "g"}

	h.OnRunStart(ctx, &domain.RunEvent{EventBase: base})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsInFlight))

	h.OnNodeLeave(ctx, &domain.NodeEvent{EventBase: base, NodeID: "a", NodeKind: domain.KindTool, Duration: time.Millisecond})
	h.OnNodeLeave(ctx, &domain.NodeEvent{EventBase: base, NodeID: "a", NodeKind: domain.KindTool, Error: "boom"})
	h.OnToolReturn(ctx, &domain.ToolEvent{EventBase: base, ToolName: "echo"})
	h.OnToolReturn(ctx, &domain.ToolEvent{EventBase: base, ToolName: "echo", IsError: true})
	h.OnRunFinish(ctx, &domain.RunEvent{EventBase: base, Status: domain.StatusFailed, Duration: time.Second})

	assert.Equal(t, 0.0, testutil.ToFloat64(m.RunsInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("g", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NodeExecutions.WithLabelValues("g", "a", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NodeExecutions.WithLabelValues("g", "a", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("echo", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ToolDuration))
}

func TestNewMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	second, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	second.RunsTotal.WithLabelValues("g", "completed").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(first.RunsTotal.WithLabelValues("g", "completed")))
}
