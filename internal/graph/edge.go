package graph

import "encoding/json"

const (
	EdgeKindSmoothStep = "smoothstep"
	MarkerArrow        = "arrow"
)

type Marker struct {
	Type string `json:"type"`
}

// Edge is a directed connection from a source output port to a target input
// port. TargetHandle is kept verbatim so variable bindings can be resolved
// downstream.
type Edge struct {
	ID           string
	Source       string
	SourceHandle string
	Target       string
	TargetHandle string
	Type         string
	Animated     bool
	MarkerEnd    *Marker
}

type edgeJSON struct {
	ID              string  `json:"id"`
	Source          string  `json:"source"`
	SourceHandle    string  `json:"sourceHandle,omitempty"`
	Target          string  `json:"target"`
	TargetHandle    string  `json:"targetHandle,omitempty"`
	TargetHandleAlt string  `json:"target_handle"`
	Type            string  `json:"type,omitempty"`
	Animated        bool    `json:"animated"`
	MarkerEnd       *Marker `json:"markerEnd,omitempty"`
}

// MarshalJSON mirrors targetHandle into target_handle, the key the executor
// reads.
func (e Edge) MarshalJSON() ([]byte, error) {
	return json.Marshal(edgeJSON{
		ID:              e.ID,
		Source:          e.Source,
		SourceHandle:    e.SourceHandle,
		Target:          e.Target,
		TargetHandle:    e.TargetHandle,
		TargetHandleAlt: e.TargetHandle,
		Type:            e.Type,
		Animated:        e.Animated,
		MarkerEnd:       e.MarkerEnd,
	})
}

func (e *Edge) UnmarshalJSON(b []byte) error {
	var raw edgeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	th := raw.TargetHandle
	if th == "" {
		th = raw.TargetHandleAlt
	}
	*e = Edge{
		ID:           raw.ID,
		Source:       raw.Source,
		SourceHandle: raw.SourceHandle,
		Target:       raw.Target,
		TargetHandle: th,
		Type:         raw.Type,
		Animated:     raw.Animated,
		MarkerEnd:    raw.MarkerEnd,
	}
	return nil
}

// styled fills in the fixed visual attributes every stored edge carries.
func (e Edge) styled() Edge {
	if e.Type == "" {
		e.Type = EdgeKindSmoothStep
	}
	e.Animated = true
	if e.MarkerEnd == nil {
		e.MarkerEnd = &Marker{Type: MarkerArrow}
	}
	return e
}

func (e Edge) key() [4]string {
	return [4]string{e.Source, e.SourceHandle, e.Target, e.TargetHandle}
}
