package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic classification via errors.Is().
var (
	// ErrValidation marks changes rejected before they reach the store.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks updates that target a node or edge that no longer exists.
	ErrNotFound = errors.New("not found")
)

// Validation kinds.
const (
	KindDuplicateID       = "duplicate_id"
	KindUnsupportedChange = "unsupported_change"
	KindInvalidHandle     = "invalid_handle"
	KindUnknownNode       = "unknown_node"
	KindSelfLoop          = "self_loop"
	KindDuplicateEdge     = "duplicate_edge"
	KindInvalidField      = "invalid_field"
	KindReadOnlyField     = "read_only_field"
	KindTypeChange        = "type_change"
	KindInvalidNode       = "invalid_node"
)

// Kind-only values usable as errors.Is targets.
var (
	ErrDuplicateID       = &ValidationError{Kind: KindDuplicateID}
	ErrUnsupportedChange = &ValidationError{Kind: KindUnsupportedChange}
	ErrInvalidHandle     = &ValidationError{Kind: KindInvalidHandle}
	ErrUnknownNode       = &ValidationError{Kind: KindUnknownNode}
	ErrSelfLoop          = &ValidationError{Kind: KindSelfLoop}
	ErrDuplicateEdge     = &ValidationError{Kind: KindDuplicateEdge}
	ErrInvalidField      = &ValidationError{Kind: KindInvalidField}
	ErrReadOnlyField     = &ValidationError{Kind: KindReadOnlyField}
	ErrTypeChange        = &ValidationError{Kind: KindTypeChange}
	ErrInvalidNode       = &ValidationError{Kind: KindInvalidNode}

	ErrNodeNotFound = &NotFoundError{Entity: "node"}
	ErrEdgeNotFound = &NotFoundError{Entity: "edge"}
)

// ValidationError represents a rejected mutation.
// Wraps ErrValidation for errors.Is() compatibility.
type ValidationError struct {
	Kind string
	Msg  string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Kind)
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Is matches a kind-only target such as ErrInvalidHandle.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok || t.Msg != "" {
		return false
	}
	return t.Kind == e.Kind
}

func invalid(kind, format string, args ...any) error {
	return &ValidationError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing node or edge.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	if e.ID == "" {
		return fmt.Sprintf("%s %s", e.Entity, ErrNotFound.Error())
	}
	return fmt.Sprintf("%s %q %s", e.Entity, e.ID, ErrNotFound.Error())
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	if !ok || t.ID != "" {
		return false
	}
	return t.Entity == e.Entity
}

func nodeNotFound(id string) error { return &NotFoundError{Entity: "node", ID: id} }
func edgeNotFound(id string) error { return &NotFoundError{Entity: "edge", ID: id} }
