package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopMetrics(t *testing.T) {
	m := NewNop()

	require.NotPanics(t, func() {
		m.RecordTransition("request", "scheduled")
		m.RecordConflict("schedule")
		m.RecordAward("organization", -20)
		m.RecordBadge("Bronze")
		m.RecordDispatch("email", "delivered")
		m.RecordHTTPRequest("GET", "/healthz", 200, 0.01)
	})
}

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	p.RecordTransition("request", "scheduled")
	p.RecordTransition("request", "scheduled")
	p.RecordConflict("schedule")
	p.RecordAward("organization", 100)
	p.RecordAward("organization", -20)
	p.RecordBadge("Bronze")
	p.RecordDispatch("in_app", "retry")
	p.RecordHTTPRequest("POST", "/api/v1/tasks", 201, 0.02)

	assert.InDelta(t, 2, testutil.ToFloat64(p.transitions.WithLabelValues("request", "scheduled")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.conflicts.WithLabelValues("schedule")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(p.awards.WithLabelValues("organization")), 0)
	assert.InDelta(t, 100, testutil.ToFloat64(p.points.WithLabelValues("organization", "positive")), 0)
	assert.InDelta(t, 20, testutil.ToFloat64(p.points.WithLabelValues("organization", "negative")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.badges.WithLabelValues("Bronze")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.dispatches.WithLabelValues("in_app", "retry")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.requests.WithLabelValues("POST", "/api/v1/tasks", "201")), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
