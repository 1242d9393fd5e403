package graph

import "strings"

type Direction string

const (
	DirSource Direction = "source"
	DirTarget Direction = "target"
)

// Static handle ids.
const (
	HandleInput  = "input"
	HandleOutput = "output"
)

// VarHandlePrefix prefixes dynamic llm input handles.
const VarHandlePrefix = "var-"

// Port is a connection point on a node. Ports are never stored; they are
// recomputed from node data on every read.
type Port struct {
	NodeID    string    `json:"nodeId"`
	ID        string    `json:"id"`
	Direction Direction `json:"direction"`
	Variable  string    `json:"variable,omitempty"`
}

// VarHandle returns the target handle id for a template variable.
func VarHandle(name string) string { return VarHandlePrefix + name }

// VariableOf reports the variable a handle id names, if any.
func VariableOf(handle string) (string, bool) {
	if !strings.HasPrefix(handle, VarHandlePrefix) {
		return "", false
	}
	return strings.TrimPrefix(handle, VarHandlePrefix), true
}

func staticInputs(t NodeType) []string {
	switch t {
	case TypeOutput, TypeMailSearch, TypeMailSend:
		return []string{HandleInput}
	}
	return nil
}

func staticOutputs(t NodeType) []string {
	switch t {
	case TypeOutput:
		return nil
	}
	return []string{HandleOutput}
}

// Ports lists the static and template-derived ports of n: inputs first, then
// outputs.
func Ports(n Node) []Port {
	var ports []Port
	for _, h := range staticInputs(n.Type) {
		ports = append(ports, Port{NodeID: n.ID, ID: h, Direction: DirTarget})
	}
	for _, v := range n.Data.Variables() {
		ports = append(ports, Port{NodeID: n.ID, ID: VarHandle(v), Direction: DirTarget, Variable: v})
	}
	for _, h := range staticOutputs(n.Type) {
		ports = append(ports, Port{NodeID: n.ID, ID: h, Direction: DirSource})
	}
	return ports
}
