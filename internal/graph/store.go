package graph

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type StalePolicy string

const (
	StaleKeep  StalePolicy = "keep"
	StalePrune StalePolicy = "prune"
)

// Observer receives store activity. internal/metrics implements it.
type Observer interface {
	Mutation(op string, err error)
	GraphSize(nodes, edges int)
}

type nopObserver struct{}

func (nopObserver) Mutation(string, error) {}
func (nopObserver) GraphSize(int, int)     {}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option      { return func(s *Store) { s.log = l } }
func WithPolicy(p Policy) Option            { return func(s *Store) { s.policy = p } }
func WithStaleEdges(p StalePolicy) Option   { return func(s *Store) { s.stale = p } }
func WithObserver(o Observer) Option        { return func(s *Store) { s.obs = o } }
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }
func WithEdgeIDs(f func() string) Option    { return func(s *Store) { s.edgeID = f } }

// Store is the single owner of the graph. Readers get lock-free snapshots;
// writers are serialized, build a new Graph from the latest one and swap it
// in. A published Graph is never modified.
type Store struct {
	mu      sync.Mutex
	cur     atomic.Pointer[Graph]
	version atomic.Uint64

	policy Policy
	stale  StalePolicy
	log    *slog.Logger
	obs    Observer
	now    func() time.Time
	edgeID func() string
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		stale:  StaleKeep,
		log:    slog.New(slog.DiscardHandler),
		obs:    nopObserver{},
		now:    time.Now,
		edgeID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	s.cur.Store(&Graph{Nodes: []Node{}, Edges: []Edge{}})
	return s
}

// write runs fn against a private copy of the current graph and publishes the
// result only if fn succeeds.
func (s *Store) write(op string, prune bool, fn func(g *Graph) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.cur.Load().clone()
	if err := fn(&g); err != nil {
		s.obs.Mutation(op, err)
		s.log.Debug("graph mutation rejected", "op", op, "err", err)
		return err
	}
	if prune && s.stale == StalePrune {
		if n := g.pruneStale(); n > 0 {
			s.log.Info("pruned stale edges", "op", op, "count", n)
		}
	}
	s.publish(&g)
	s.obs.Mutation(op, nil)
	return nil
}

func (s *Store) publish(g *Graph) {
	s.cur.Store(g)
	v := s.version.Add(1)
	s.obs.GraphSize(len(g.Nodes), len(g.Edges))
	s.log.Debug("graph published", "version", v, "nodes", len(g.Nodes), "edges", len(g.Edges))
}

// Snapshot returns the current graph. The slices are private to the caller.
func (s *Store) Snapshot() Graph { return s.cur.Load().clone() }

// Version increases by one on every published change.
func (s *Store) Version() uint64 { return s.version.Load() }

func (s *Store) Node(id string) (Node, bool) { return s.cur.Load().node(id) }

// Ports derives the current ports of a node.
func (s *Store) Ports(id string) ([]Port, error) {
	n, ok := s.Node(id)
	if !ok {
		return nil, nodeNotFound(id)
	}
	return Ports(n), nil
}

// StaleEdges reports edges bound to variables their target no longer
// declares. Under StalePrune this is normally empty.
func (s *Store) StaleEdges() []Edge { return s.cur.Load().Stale() }

func (s *Store) AddNode(n Node) error {
	return s.write("add_node", false, func(g *Graph) error { return g.addNode(n) })
}

// NewNode creates a node of the given type with a generated id and default
// data, and adds it.
func (s *Store) NewNode(typ NodeType, pos Position) (Node, error) {
	return s.CreateNode(typ, pos, nil)
}

// CreateNode is NewNode with initial data fields applied before the node is
// published. Derived and mirrored fields in fields are ignored. A rejected
// field leaves the graph unchanged.
func (s *Store) CreateNode(typ NodeType, pos Position, fields map[string]any) (Node, error) {
	var out Node
	err := s.write("add_node", false, func(g *Graph) error {
		n, err := NewNode(s.nextID(g, typ), typ, pos)
		if err != nil {
			return err
		}
		for _, k := range slices.Sorted(maps.Keys(fields)) {
			switch k {
			case FieldID, FieldNodeType, FieldVariables:
				continue
			}
			if n.Data, err = n.Data.With(k, fields[k]); err != nil {
				return err
			}
		}
		out = n
		return g.addNode(n)
	})
	return out, err
}

// nextID returns "<type>-<unix millis>", suffixed if already taken.
func (s *Store) nextID(g *Graph, typ NodeType) string {
	base := fmt.Sprintf("%s-%d", typ, s.now().UnixMilli())
	id := base
	for i := 2; g.index(id) >= 0; i++ {
		id = base + "-" + strconv.Itoa(i)
	}
	return id
}

func (s *Store) RemoveNode(id string) error {
	return s.write("remove_node", false, func(g *Graph) error { return g.removeNode(id) })
}

// ApplyNodeChanges applies the batch in order. Either every change lands or
// none does.
func (s *Store) ApplyNodeChanges(changes []NodeChange) error {
	return s.write("node_changes", true, func(g *Graph) error {
		for i, c := range changes {
			if err := g.applyNodeChange(c); err != nil {
				return changeErr(i, err)
			}
		}
		return nil
	})
}

func (s *Store) ApplyEdgeChanges(changes []EdgeChange) error {
	return s.write("edge_changes", false, func(g *Graph) error {
		for i, c := range changes {
			if err := g.applyEdgeChange(c, s.policy); err != nil {
				return changeErr(i, err)
			}
		}
		return nil
	})
}

// Connect validates c and appends a new edge for it.
func (s *Store) Connect(c Connection) (Edge, error) {
	var out Edge
	err := s.write("connect", false, func(g *Graph) error {
		nc, err := s.policy.Validate(*g, c)
		if err != nil {
			return err
		}
		out = Edge{
			ID:           s.edgeID(),
			Source:       nc.Source,
			SourceHandle: nc.SourceHandle,
			Target:       nc.Target,
			TargetHandle: nc.TargetHandle,
		}.styled()
		g.Edges = append(g.Edges, out)
		return nil
	})
	return out, err
}

// UpdateField sets one data field of a node. A missing node yields
// ErrNodeNotFound and leaves the graph as it was.
func (s *Store) UpdateField(id, field string, v any) error {
	return s.write("update_field", true, func(g *Graph) error { return g.updateField(id, field, v) })
}

func (s *Store) UpdateValue(id, value string) error {
	return s.UpdateField(id, FieldValue, value)
}

// ApplyValues sets the value field of every listed node that exists, in one
// swap, and returns the ids it applied in graph order.
func (s *Store) ApplyValues(values map[string]string) []string {
	var applied []string
	_ = s.write("apply_values", false, func(g *Graph) error {
		for i, n := range g.Nodes {
			v, ok := values[n.ID]
			if !ok {
				continue
			}
			n.Data.Value = v
			g.Nodes[i] = n
			applied = append(applied, n.ID)
		}
		return nil
	})
	return applied
}

// ReplaceAll swaps in a whole graph, as restored from a session snapshot.
// Edges are trusted; node data is still normalized.
func (s *Store) ReplaceAll(nodes []Node, edges []Edge) error {
	return s.write("replace_all", false, func(g *Graph) error {
		ng := Graph{Nodes: make([]Node, 0, len(nodes)), Edges: make([]Edge, 0, len(edges))}
		for _, n := range nodes {
			n, err := n.normalized()
			if err != nil {
				return err
			}
			ng.Nodes = append(ng.Nodes, n)
		}
		for _, e := range edges {
			ng.Edges = append(ng.Edges, e.styled())
		}
		*g = ng
		return nil
	})
}
