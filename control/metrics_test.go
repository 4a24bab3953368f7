package control

import (
	"testing"
	"time"

	"github.com/momentics/hioload-thread/api"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordLifecycle(t *testing.T) {
	reg := prom.NewRegistry()
	m, err := NewMetrics("", reg)
	require.NoError(t, err)

	m.ThreadCreated(api.PriorityDisplay)
	m.ThreadCreated(api.PriorityDisplay)
	m.ThreadExited()
	m.ThreadCreateFailed("thread-limit")
	m.ThreadJoined(5 * time.Millisecond)
	m.PriorityApplied(api.PriorityBackground, api.PathNice)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.created.WithLabelValues("display")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.live))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("thread-limit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.applied.WithLabelValues("background", "nice")))

	snap := m.Snapshot()
	assert.Equal(t, 2.0, snap["threads.created"])
	assert.Equal(t, 1.0, snap["threads.live"])
	assert.Equal(t, 1.0, snap["threads.joins"])
}

func TestMetricsReuseRegisteredCollectors(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetrics("", reg)
	require.NoError(t, err)
	second, err := NewMetrics("", reg)
	require.NoError(t, err)

	first.ThreadCreateFailed("")
	second.ThreadCreateFailed("")
	assert.Equal(t, 2.0, testutil.ToFloat64(first.failures.WithLabelValues("unknown")))
}
