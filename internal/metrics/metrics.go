package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every collector the service exports.
type Registry struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	GraphNodes     prometheus.Gauge
	GraphEdges     prometheus.Gauge
	GraphMutations *prometheus.CounterVec

	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram

	ActionsTotal *prometheus.CounterVec
}

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Registry{
		registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flownodes_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flownodes_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		GraphNodes: f.NewGauge(prometheus.GaugeOpts{
			Name: "flownodes_graph_nodes",
			Help: "Nodes in the current graph",
		}),
		GraphEdges: f.NewGauge(prometheus.GaugeOpts{
			Name: "flownodes_graph_edges",
			Help: "Edges in the current graph",
		}),
		GraphMutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flownodes_graph_mutations_total",
			Help: "Graph mutations by operation and result",
		}, []string{"op", "result"}),
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flownodes_runs_total",
			Help: "Pipeline runs by result",
		}, []string{"result"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "flownodes_run_duration_seconds",
			Help:    "Pipeline run latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		ActionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flownodes_node_actions_total",
			Help: "Per-node actions (auth, search, send, upload) by result",
		}, []string{"action", "result"}),
	}
}

func (r *Registry) Prometheus() *prometheus.Registry { return r.registry }

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Mutation and GraphSize make Registry a graph.Observer.
func (r *Registry) Mutation(op string, err error) {
	r.GraphMutations.WithLabelValues(op, result(err)).Inc()
}

func (r *Registry) GraphSize(nodes, edges int) {
	r.GraphNodes.Set(float64(nodes))
	r.GraphEdges.Set(float64(edges))
}

func (r *Registry) RecordHTTPRequest(method, route, status string, d time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (r *Registry) RecordRun(outcome string, d time.Duration) {
	r.RunsTotal.WithLabelValues(outcome).Inc()
	if d > 0 {
		r.RunDuration.Observe(d.Seconds())
	}
}

func (r *Registry) RecordAction(action string, err error) {
	r.ActionsTotal.WithLabelValues(action, result(err)).Inc()
}
