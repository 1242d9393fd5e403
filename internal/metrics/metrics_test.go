package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	case out.Histogram != nil:
		return float64(out.Histogram.GetSampleCount())
	}
	return 0
}

func TestGraphObserver(t *testing.T) {
	r := NewRegistry()
	r.Mutation("connect", nil)
	r.Mutation("connect", errors.New("nope"))
	r.Mutation("connect", nil)
	r.GraphSize(3, 2)

	assert.Equal(t, 2.0, value(t, r.GraphMutations.WithLabelValues("connect", "ok")))
	assert.Equal(t, 1.0, value(t, r.GraphMutations.WithLabelValues("connect", "error")))
	assert.Equal(t, 3.0, value(t, r.GraphNodes))
	assert.Equal(t, 2.0, value(t, r.GraphEdges))
}

func TestRecordRun(t *testing.T) {
	r := NewRegistry()
	r.RecordRun("ok", 200*time.Millisecond)
	r.RecordRun("busy", 0)

	assert.Equal(t, 1.0, value(t, r.RunsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, value(t, r.RunsTotal.WithLabelValues("busy")))
	assert.Equal(t, 1.0, value(t, r.RunDuration))
}

func TestGather(t *testing.T) {
	r := NewRegistry()
	r.RecordHTTPRequest("GET", "/graph", "200", time.Millisecond)
	r.RecordAction("search", nil)

	families, err := r.Prometheus().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["flownodes_http_requests_total"])
	assert.True(t, names["flownodes_node_actions_total"])
}
