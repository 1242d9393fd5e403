package graph

import (
	"encoding/json"
	"fmt"
)

type NodeType string

const (
	TypeInput      NodeType = "input"
	TypeOutput     NodeType = "output"
	TypeLLM        NodeType = "llm"
	TypeMailSearch NodeType = "mail-search"
	TypeMailSend   NodeType = "mail-send"
	TypeFile       NodeType = "file"
)

// NodeTypes lists every supported node type in toolbar order.
var NodeTypes = []NodeType{TypeInput, TypeOutput, TypeLLM, TypeMailSearch, TypeMailSend, TypeFile}

func (t NodeType) Valid() bool {
	for _, k := range NodeTypes {
		if k == t {
			return true
		}
	}
	return false
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a typed unit of the pipeline graph. Values are treated as immutable
// once they are part of a published Graph.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// NewNode builds a node with default data for its type.
func NewNode(id string, typ NodeType, pos Position) (Node, error) {
	if id == "" {
		return Node{}, invalid(KindInvalidNode, "node id is empty")
	}
	if !typ.Valid() {
		return Node{}, invalid(KindInvalidNode, "unknown node type %q", typ)
	}
	return Node{ID: id, Type: typ, Position: pos, Data: NewData(id, typ)}, nil
}

// normalized returns n with data.id and data.nodeType forced to mirror the node.
func (n Node) normalized() (Node, error) {
	if n.ID == "" {
		return n, invalid(KindInvalidNode, "node id is empty")
	}
	if !n.Type.Valid() {
		return n, invalid(KindInvalidNode, "node %q has unknown type %q", n.ID, n.Type)
	}
	d := n.Data
	if d.Fields == nil || d.Fields.Kind() != n.Type {
		// data built for another kind (or zero value): rebuild, keeping what carries over
		nd := NewData(n.ID, n.Type)
		nd.Value = d.Value
		for k, v := range d.Map() {
			if k == FieldID || k == FieldNodeType || k == FieldValue || k == FieldVariables {
				continue
			}
			if next, err := nd.With(k, v); err == nil {
				nd = next
			}
		}
		d = nd
	}
	d.ID = n.ID
	d.NodeType = n.Type
	n.Data = d
	return n, nil
}

func (n *Node) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID       string         `json:"id"`
		Type     NodeType       `json:"type"`
		Position Position       `json:"position"`
		Data     map[string]any `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Type == "" {
		if t, ok := raw.Data["nodeType"].(string); ok {
			raw.Type = NodeType(t)
		}
	}
	if raw.ID == "" {
		return invalid(KindInvalidNode, "node id is empty")
	}
	if !raw.Type.Valid() {
		return invalid(KindInvalidNode, "node %q has unknown type %q", raw.ID, raw.Type)
	}
	data, err := decodeData(raw.ID, raw.Type, raw.Data)
	if err != nil {
		return fmt.Errorf("node %q: %w", raw.ID, err)
	}
	*n = Node{ID: raw.ID, Type: raw.Type, Position: raw.Position, Data: data}
	return nil
}
