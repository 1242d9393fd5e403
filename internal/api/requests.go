package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/MalithGihan/flownodes/internal/graph"
	"github.com/MalithGihan/flownodes/internal/validate"
)

const maxBody = 8 << 20

type createNodeRequest struct {
	Type     string         `json:"type" validate:"required,oneof=input output llm mail-search mail-send file"`
	Position graph.Position `json:"position"`
	Data     map[string]any `json:"data"`
}

type patchNodeRequest struct {
	Field string `json:"field" validate:"required"`
	Value any    `json:"value"`
}

type valueRequest struct {
	Value *string `json:"value" validate:"required"`
}

type graphRequest struct {
	Nodes []graph.Node `json:"nodes" validate:"required"`
	Edges []graph.Edge `json:"edges" validate:"required"`
}

type graphResponse struct {
	Nodes   []graph.Node `json:"nodes"`
	Edges   []graph.Edge `json:"edges"`
	Version uint64       `json:"version"`
}

// badRequest marks errors caused by an unreadable request body.
type badRequest struct{ err error }

func (e *badRequest) Error() string { return e.err.Error() }
func (e *badRequest) Unwrap() error { return e.err }

// decode reads a JSON body into the struct pointed to by v and checks its
// validate tags.
func decode(r *http.Request, v any) error {
	if err := decodeJSON(r, v); err != nil {
		return err
	}
	if err := validate.Struct(v); err != nil {
		return &badRequest{err}
	}
	return nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &badRequest{errors.New("request body is empty")}
		}
		var ve *graph.ValidationError
		if errors.As(err, &ve) {
			return err
		}
		return &badRequest{fmt.Errorf("invalid JSON: %w", err)}
	}
	return nil
}
