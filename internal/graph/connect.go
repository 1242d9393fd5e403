package graph

import "slices"

// Connection is a proposed edge as emitted by the canvas.
type Connection struct {
	Source       string `json:"source" validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	Target       string `json:"target" validate:"required"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Policy decides whether a connection may become an edge.
type Policy struct {
	AllowSelfLoops bool
}

// Validate checks c against g and returns it with empty handles filled in.
func (p Policy) Validate(g Graph, c Connection) (Connection, error) {
	src, ok := g.node(c.Source)
	if !ok {
		return c, invalid(KindUnknownNode, "source node %q does not exist", c.Source)
	}
	dst, ok := g.node(c.Target)
	if !ok {
		return c, invalid(KindUnknownNode, "target node %q does not exist", c.Target)
	}
	if c.Source == c.Target && !p.AllowSelfLoops {
		return c, invalid(KindSelfLoop, "node %q cannot connect to itself", c.Source)
	}

	outs := staticOutputs(src.Type)
	switch {
	case len(outs) == 0:
		return c, invalid(KindInvalidHandle, "%s node %q has no outputs", src.Type, src.ID)
	case c.SourceHandle == "" && len(outs) == 1:
		c.SourceHandle = outs[0]
	case !slices.Contains(outs, c.SourceHandle):
		return c, invalid(KindInvalidHandle, "%q is not an output of %q", c.SourceHandle, src.ID)
	}

	if name, ok := VariableOf(c.TargetHandle); ok {
		if !slices.Contains(dst.Data.Variables(), name) {
			return c, invalid(KindInvalidHandle, "variable %q is not in the template of %q", name, dst.ID)
		}
	} else {
		ins := staticInputs(dst.Type)
		switch {
		case dst.Type == TypeLLM:
			return c, invalid(KindInvalidHandle, "llm node %q needs a variable handle", dst.ID)
		case len(ins) == 0:
			return c, invalid(KindInvalidHandle, "%s node %q has no inputs", dst.Type, dst.ID)
		case c.TargetHandle == "" && len(ins) == 1:
			c.TargetHandle = ins[0]
		case !slices.Contains(ins, c.TargetHandle):
			return c, invalid(KindInvalidHandle, "%q is not an input of %q", c.TargetHandle, dst.ID)
		}
	}

	k := [4]string{c.Source, c.SourceHandle, c.Target, c.TargetHandle}
	for _, e := range g.Edges {
		if e.key() == k {
			return c, invalid(KindDuplicateEdge, "edge %s already connects %s to %s", e.ID, c.Source, c.Target)
		}
	}
	return c, nil
}
