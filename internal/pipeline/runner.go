// Package pipeline runs the graph through an executor and writes the
// per-node results back into the store.
package pipeline

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync/atomic"
	"time"

	"github.com/MalithGihan/flownodes/internal/ctxlog"
	"github.com/MalithGihan/flownodes/internal/executor"
	"github.com/MalithGihan/flownodes/internal/graph"
	"github.com/MalithGihan/flownodes/pkg/types"
)

var ErrRunInProgress = errors.New("a run is already in progress")

// Executor evaluates a submitted graph. *executor.Client and *engine.Engine
// both satisfy it.
type Executor interface {
	Process(ctx context.Context, req executor.ProcessRequest) (types.RunResult, error)
}

type Recorder interface {
	RecordRun(outcome string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordRun(string, time.Duration) {}

// Report describes a finished run.
type Report struct {
	Applied  []string      `json:"applied"`
	Skipped  []string      `json:"skipped"`
	Duration time.Duration `json:"duration"`
	Version  uint64        `json:"version"`
}

type Runner struct {
	store   *graph.Store
	exec    Executor
	rec     Recorder
	running atomic.Bool
}

type Option func(*Runner)

func WithRecorder(r Recorder) Option { return func(rn *Runner) { rn.rec = r } }

func New(store *graph.Store, exec Executor, opts ...Option) *Runner {
	r := &Runner{store: store, exec: exec, rec: nopRecorder{}}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Running reports whether a run is in flight.
func (r *Runner) Running() bool { return r.running.Load() }

// Run submits the current graph and applies the result. On any executor
// failure the graph is left untouched and a *executor.TransportError is
// returned.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	if !r.running.CompareAndSwap(false, true) {
		r.rec.RecordRun("busy", 0)
		return Report{}, ErrRunInProgress
	}
	defer r.running.Store(false)

	log := ctxlog.FromContext(ctx)
	start := time.Now()
	g := r.store.Snapshot()
	req := executor.ProcessRequest{Nodes: g.Nodes, Edges: g.Edges, Inputs: Inputs(g)}
	log.Info("run started", "nodes", len(g.Nodes), "edges", len(g.Edges), "inputs", len(req.Inputs))

	res, err := r.exec.Process(ctx, req)
	if err != nil {
		if !errors.Is(err, executor.ErrTransport) {
			err = &executor.TransportError{Op: "process", Err: err}
		}
		r.rec.RecordRun("error", time.Since(start))
		log.Warn("run failed", "err", err)
		return Report{}, err
	}

	values := make(map[string]string, len(res))
	for id, v := range res {
		values[id] = graph.Stringify(v)
	}
	applied := r.store.ApplyValues(values)

	rep := Report{
		Applied:  nonNil(applied),
		Skipped:  skipped(values, applied),
		Duration: time.Since(start),
		Version:  r.store.Version(),
	}
	r.rec.RecordRun("ok", rep.Duration)
	log.Info("run finished", "applied", len(rep.Applied), "skipped", len(rep.Skipped), "duration", rep.Duration)
	return rep, nil
}

// Inputs projects every input node to {id, value}.
func Inputs(g graph.Graph) []types.InputValue {
	out := []types.InputValue{}
	for _, n := range g.Nodes {
		if n.Type == graph.TypeInput {
			out = append(out, types.InputValue{ID: n.ID, Value: n.Data.Value})
		}
	}
	return out
}

func skipped(values map[string]string, applied []string) []string {
	out := []string{}
	for _, id := range slices.Sorted(maps.Keys(values)) {
		if !slices.Contains(applied, id) {
			out = append(out, id)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
