// Package mail implements the actions behind mail-search and mail-send
// nodes. Each action reads the node, calls the executor and writes the
// outcome back by node id only.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MalithGihan/flownodes/internal/ctxlog"
	"github.com/MalithGihan/flownodes/internal/graph"
	"github.com/MalithGihan/flownodes/pkg/types"
)

var (
	ErrNotAuthorized = errors.New("node is not authorized")
	ErrWrongNodeType = errors.New("wrong node type for action")
	ErrMissingFields = errors.New("missing required fields")
)

// Client is the executor side of the mail actions.
type Client interface {
	Search(ctx context.Context, nodeID string, req types.SearchRequest) ([]types.Message, error)
	Send(ctx context.Context, nodeID string, req types.SendRequest) error
}

type Recorder interface {
	RecordAction(action string, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordAction(string, error) {}

type Service struct {
	store  *graph.Store
	client Client
	rec    Recorder
}

func New(store *graph.Store, client Client, rec Recorder) *Service {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Service{store: store, client: client, rec: rec}
}

// Search runs the node's query and stores the hits in searchResults. If the
// node disappears while the call is in flight the hits are dropped.
func (s *Service) Search(ctx context.Context, nodeID string) (msgs []types.Message, err error) {
	defer func() { s.rec.RecordAction("search", err) }()

	n, ok := s.store.Node(nodeID)
	if !ok {
		return nil, &graph.NotFoundError{Entity: "node", ID: nodeID}
	}
	f, ok := n.Data.Fields.(graph.MailSearchFields)
	if !ok {
		return nil, fmt.Errorf("%w: search on %s node %q", ErrWrongNodeType, n.Type, nodeID)
	}
	if !f.IsAuthorized {
		return nil, fmt.Errorf("%w: %q", ErrNotAuthorized, nodeID)
	}
	q := strings.TrimSpace(f.SearchQuery)
	if q == "" {
		return nil, fmt.Errorf("%w: searchQuery", ErrMissingFields)
	}
	limit := f.MaxResults
	if limit <= 0 {
		limit = graph.DefaultMaxResults
	}

	msgs, err = s.client.Search(ctx, nodeID, types.SearchRequest{Query: q, MaxResults: limit})
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateField(nodeID, "searchResults", msgs); err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			ctxlog.FromContext(ctx).Info("search result dropped, node removed", "node", nodeID)
			return msgs, nil
		}
		return nil, err
	}
	ctxlog.FromContext(ctx).Info("search finished", "node", nodeID, "messages", len(msgs))
	return msgs, nil
}

// SendResult is the user-facing outcome of a send.
type SendResult struct {
	Status string `json:"status"`
}

// Send mails the node's value (or body) to its recipient. The graph is not
// modified.
func (s *Service) Send(ctx context.Context, nodeID string) (res SendResult, err error) {
	defer func() { s.rec.RecordAction("send", err) }()

	n, ok := s.store.Node(nodeID)
	if !ok {
		return SendResult{}, &graph.NotFoundError{Entity: "node", ID: nodeID}
	}
	f, ok := n.Data.Fields.(graph.MailSendFields)
	if !ok {
		return SendResult{}, fmt.Errorf("%w: send on %s node %q", ErrWrongNodeType, n.Type, nodeID)
	}
	body := n.Data.Value
	if body == "" {
		body = f.Body
	}
	var missing []string
	if strings.TrimSpace(f.To) == "" {
		missing = append(missing, "to")
	}
	if strings.TrimSpace(f.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(body) == "" {
		missing = append(missing, "value")
	}
	if len(missing) > 0 {
		return SendResult{}, fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}

	if err := s.client.Send(ctx, nodeID, types.SendRequest{To: f.To, Subject: f.Subject, Body: body}); err != nil {
		return SendResult{}, err
	}
	ctxlog.FromContext(ctx).Info("mail sent", "node", nodeID)
	return SendResult{Status: "Email sent successfully!"}, nil
}
