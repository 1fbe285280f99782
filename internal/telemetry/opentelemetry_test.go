package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolMetrics_ExportedThroughRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	mp, err := InitMeterProvider(reg)
	require.NoError(t, err)
	t.Cleanup(func() { Shutdown(context.Background(), nil, mp) })

	m, err := NewToolMetrics()
	require.NoError(t, err)
	m.Record(context.Background(), "list_tasks", "ok", 15*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "taskboard_tool_duration_seconds" {
			found = true
			require.NotEmpty(t, f.GetMetric())
			assert.Equal(t, uint64(1), f.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
	assert.True(t, found, "tool duration histogram should be exported")
}

func TestToolMetrics_NilIsNoop(t *testing.T) {
	var m *ToolMetrics
	assert.NotPanics(t, func() {
		m.Record(context.Background(), "get_task", "error", time.Second)
	})
}
