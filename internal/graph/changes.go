package graph

import "fmt"

type ChangeKind string

const (
	ChangeAdd      ChangeKind = "add"
	ChangeRemove   ChangeKind = "remove"
	ChangePosition ChangeKind = "position"
	ChangeReplace  ChangeKind = "replace"
)

// NodeChange is one structural edit in a batch. Remove acts on ID and IDs;
// replace acts on Item and Items.
type NodeChange struct {
	Kind     ChangeKind `json:"type"`
	ID       string     `json:"id,omitempty"`
	IDs      []string   `json:"ids,omitempty"`
	Position *Position  `json:"position,omitempty"`
	Item     *Node      `json:"item,omitempty"`
	Items    []Node     `json:"items,omitempty"`
}

type EdgeChange struct {
	Kind ChangeKind `json:"type"`
	ID   string     `json:"id,omitempty"`
	IDs  []string   `json:"ids,omitempty"`
	Item *Edge      `json:"item,omitempty"`
}

func ids(id string, rest []string) []string {
	if id == "" {
		return rest
	}
	return append([]string{id}, rest...)
}

func (g *Graph) applyNodeChange(c NodeChange) error {
	switch c.Kind {
	case ChangeAdd:
		if c.Item == nil {
			return invalid(KindInvalidNode, "add change without item")
		}
		return g.addNode(*c.Item)
	case ChangeRemove:
		for _, id := range ids(c.ID, c.IDs) {
			if err := g.removeNode(id); err != nil {
				return err
			}
		}
		return nil
	case ChangePosition:
		if c.Position == nil {
			// drag end carries no position
			if g.index(c.ID) < 0 {
				return nodeNotFound(c.ID)
			}
			return nil
		}
		return g.moveNode(c.ID, *c.Position)
	case ChangeReplace:
		items := c.Items
		if c.Item != nil {
			items = append([]Node{*c.Item}, items...)
		}
		for _, n := range items {
			if err := g.replaceNode(n); err != nil {
				return err
			}
		}
		return nil
	}
	return invalid(KindUnsupportedChange, "unsupported node change %q", c.Kind)
}

func (g *Graph) applyEdgeChange(c EdgeChange, p Policy) error {
	switch c.Kind {
	case ChangeAdd:
		if c.Item == nil {
			return invalid(KindInvalidHandle, "add change without item")
		}
		return g.addEdge(*c.Item, p)
	case ChangeRemove:
		for _, id := range ids(c.ID, c.IDs) {
			if err := g.removeEdge(id); err != nil {
				return err
			}
		}
		return nil
	}
	return invalid(KindUnsupportedChange, "unsupported edge change %q", c.Kind)
}

func changeErr(i int, err error) error {
	return fmt.Errorf("change %d: %w", i, err)
}
