// Package session carries the in-progress graph across the external
// authorization redirect.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/MalithGihan/flownodes/internal/ctxlog"
	"github.com/MalithGihan/flownodes/internal/executor"
	"github.com/MalithGihan/flownodes/internal/graph"
	"github.com/MalithGihan/flownodes/internal/validate"
)

// Key names the stored snapshot.
const Key = "flowState"

var ErrMalformedState = errors.New("malformed session state")

// MalformedStateError is logged, never returned, when a stored snapshot
// cannot be used.
type MalformedStateError struct {
	Key string
	Err error
}

func (e *MalformedStateError) Error() string {
	return fmt.Sprintf("%s %q: %v", ErrMalformedState, e.Key, e.Err)
}

func (e *MalformedStateError) Unwrap() []error { return []error{ErrMalformedState, e.Err} }

type Snapshot struct {
	Nodes             []graph.Node `json:"nodes"`
	Edges             []graph.Edge `json:"edges"`
	PendingAuthNodeID string       `json:"pendingAuthNodeId,omitempty"`
}

// AuthProvider yields the URL that starts authorization for a node.
type AuthProvider interface {
	AuthURL(ctx context.Context, nodeID string) (string, error)
}

type Bridge struct {
	mu      sync.Mutex
	store   *graph.Store
	storage Storage
	auth    AuthProvider
	log     *slog.Logger
}

type Option func(*Bridge)

func WithLogger(l *slog.Logger) Option { return func(b *Bridge) { b.log = l } }

func New(store *graph.Store, storage Storage, auth AuthProvider, opts ...Option) *Bridge {
	b := &Bridge{store: store, storage: storage, auth: auth, log: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(b)
	}
	return b
}

// SaveSnapshot overwrites the stored snapshot.
func (b *Bridge) SaveSnapshot(nodes []graph.Node, edges []graph.Edge, pendingNodeID string) error {
	raw, err := json.Marshal(Snapshot{Nodes: nodes, Edges: edges, PendingAuthNodeID: pendingNodeID})
	if err != nil {
		return err
	}
	return b.storage.Set(Key, raw)
}

// RestoreSnapshot reads the stored snapshot. Absent or unusable state yields
// false; unusable state is also deleted.
func (b *Bridge) RestoreSnapshot() (Snapshot, bool) {
	raw, ok, err := b.storage.Get(Key)
	if err != nil {
		b.log.Warn("session restore skipped", "err", &MalformedStateError{Key: Key, Err: err})
		return Snapshot{}, false
	}
	if !ok {
		return Snapshot{}, false
	}
	if err := validate.FlowState(raw); err != nil {
		b.malformed(err)
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		b.malformed(err)
		return Snapshot{}, false
	}
	return snap, true
}

// ConsumeSnapshot restores the stored snapshot into the store, marks the
// pending node authorized and deletes the snapshot. With nothing stored it
// does nothing and returns false.
func (b *Bridge) ConsumeSnapshot() (Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap, ok := b.RestoreSnapshot()
	if !ok {
		return Snapshot{}, false
	}
	nodes := make([]graph.Node, len(snap.Nodes))
	for i, n := range snap.Nodes {
		if n.ID == snap.PendingAuthNodeID {
			d, err := n.Data.With(graph.FieldIsAuthorized, true)
			if err != nil {
				b.log.Warn("pending node not marked authorized", "node", n.ID, "err", err)
			} else {
				n.Data = d
			}
		}
		nodes[i] = n
	}
	snap.Nodes = nodes

	if err := b.store.ReplaceAll(snap.Nodes, snap.Edges); err != nil {
		b.malformed(err)
		return Snapshot{}, false
	}
	b.discard()
	b.log.Info("session restored", "nodes", len(snap.Nodes), "edges", len(snap.Edges), "pending", snap.PendingAuthNodeID)
	return snap, true
}

// malformed logs an unusable snapshot and drops it so it is reported once.
func (b *Bridge) malformed(err error) {
	b.log.Warn("session restore skipped", "err", &MalformedStateError{Key: Key, Err: err})
	b.discard()
}

func (b *Bridge) discard() {
	if err := b.storage.Delete(Key); err != nil {
		b.log.Error("session snapshot not deleted", "err", err)
	}
}

// BeginAuthorization fetches the provider URL for nodeID and saves the
// current graph so it survives the redirect. The caller sends the user to
// the returned URL.
func (b *Bridge) BeginAuthorization(ctx context.Context, nodeID string) (string, error) {
	if _, ok := b.store.Node(nodeID); !ok {
		return "", &graph.NotFoundError{Entity: "node", ID: nodeID}
	}
	u, err := b.auth.AuthURL(ctx, nodeID)
	if err != nil {
		return "", err
	}
	g := b.store.Snapshot()
	if err := b.SaveSnapshot(g.Nodes, g.Edges, nodeID); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	ctxlog.FromContext(ctx).Info("authorization started", "node", nodeID)
	return u, nil
}

// CompleteAuthorization resumes after the redirect. It acts only when the
// provider reported success, and applies a stored snapshot at most once.
func (b *Bridge) CompleteAuthorization(params url.Values) (Snapshot, bool) {
	if params.Get("authSuccess") != "true" {
		return Snapshot{}, false
	}
	return b.ConsumeSnapshot()
}

var _ AuthProvider = (*executor.Client)(nil)
