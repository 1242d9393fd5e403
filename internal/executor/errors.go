package executor

import (
	"errors"
	"fmt"
)

// ErrTransport classifies every failure talking to the executor.
var ErrTransport = errors.New("transport error")

// TransportError is a failed executor call: a network error, a non-2xx
// status, or a body that could not be decoded.
type TransportError struct {
	Op     string
	Status int
	Detail string
	Err    error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("executor %s", e.Op)
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, e.Err}
}
