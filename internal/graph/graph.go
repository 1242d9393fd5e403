// Package graph holds the pipeline graph: typed nodes, the edges between
// their ports, the rules for connecting them, and the copy-on-write Store
// that owns the canonical state.
package graph

import (
	"fmt"
	"slices"
)

// Graph is an immutable view of nodes and edges in insertion order.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

func (g Graph) clone() Graph {
	return Graph{
		Nodes: append(make([]Node, 0, len(g.Nodes)+1), g.Nodes...),
		Edges: append(make([]Edge, 0, len(g.Edges)+1), g.Edges...),
	}
}

func (g Graph) index(id string) int {
	return slices.IndexFunc(g.Nodes, func(n Node) bool { return n.ID == id })
}

func (g Graph) edgeIndex(id string) int {
	return slices.IndexFunc(g.Edges, func(e Edge) bool { return e.ID == id })
}

func (g Graph) node(id string) (Node, bool) {
	if i := g.index(id); i >= 0 {
		return g.Nodes[i], true
	}
	return Node{}, false
}

// Node looks a node up by id.
func (g Graph) Node(id string) (Node, bool) { return g.node(id) }

// Stale returns edges bound to a template variable the target no longer has.
func (g Graph) Stale() []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if g.isStale(e) {
			out = append(out, e)
		}
	}
	return out
}

func (g Graph) isStale(e Edge) bool {
	name, ok := VariableOf(e.TargetHandle)
	if !ok {
		return false
	}
	dst, ok := g.node(e.Target)
	if !ok {
		return true
	}
	return !slices.Contains(dst.Data.Variables(), name)
}

func (g *Graph) addNode(n Node) error {
	n, err := n.normalized()
	if err != nil {
		return err
	}
	if g.index(n.ID) >= 0 {
		return invalid(KindDuplicateID, "node %q already exists", n.ID)
	}
	g.Nodes = append(g.Nodes, n)
	return nil
}

// removeNode drops the node and every edge touching it.
func (g *Graph) removeNode(id string) error {
	i := g.index(id)
	if i < 0 {
		return nodeNotFound(id)
	}
	g.Nodes = slices.Delete(g.Nodes, i, i+1)
	g.Edges = slices.DeleteFunc(g.Edges, func(e Edge) bool {
		return e.Source == id || e.Target == id
	})
	return nil
}

func (g *Graph) moveNode(id string, pos Position) error {
	i := g.index(id)
	if i < 0 {
		return nodeNotFound(id)
	}
	n := g.Nodes[i]
	n.Position = pos
	g.Nodes[i] = n
	return nil
}

func (g *Graph) replaceNode(n Node) error {
	i := g.index(n.ID)
	if i < 0 {
		return nodeNotFound(n.ID)
	}
	if g.Nodes[i].Type != n.Type {
		return invalid(KindTypeChange, "node %q cannot change type from %s to %s", n.ID, g.Nodes[i].Type, n.Type)
	}
	n, err := n.normalized()
	if err != nil {
		return err
	}
	g.Nodes[i] = n
	return nil
}

func (g *Graph) updateField(id, field string, v any) error {
	i := g.index(id)
	if i < 0 {
		return nodeNotFound(id)
	}
	n := g.Nodes[i]
	d, err := n.Data.With(field, v)
	if err != nil {
		return fmt.Errorf("node %q: %w", id, err)
	}
	n.Data = d
	g.Nodes[i] = n
	return nil
}

func (g *Graph) addEdge(e Edge, p Policy) error {
	if e.ID == "" {
		return invalid(KindInvalidHandle, "edge id is empty")
	}
	if g.edgeIndex(e.ID) >= 0 {
		return invalid(KindDuplicateID, "edge %q already exists", e.ID)
	}
	c, err := p.Validate(*g, Connection{
		Source:       e.Source,
		SourceHandle: e.SourceHandle,
		Target:       e.Target,
		TargetHandle: e.TargetHandle,
	})
	if err != nil {
		return err
	}
	e.SourceHandle = c.SourceHandle
	e.TargetHandle = c.TargetHandle
	g.Edges = append(g.Edges, e.styled())
	return nil
}

func (g *Graph) removeEdge(id string) error {
	i := g.edgeIndex(id)
	if i < 0 {
		return edgeNotFound(id)
	}
	g.Edges = slices.Delete(g.Edges, i, i+1)
	return nil
}

func (g *Graph) pruneStale() int {
	before := len(g.Edges)
	g.Edges = slices.DeleteFunc(g.Edges, g.isStale)
	return before - len(g.Edges)
}
