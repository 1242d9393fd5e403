package executor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MalithGihan/flownodes/internal/graph"
	"github.com/MalithGihan/flownodes/pkg/types"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/", 5*time.Second)
}

func TestProcess(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/process", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		edges := body["edges"].([]any)
		assert.Equal(t, "var-name", edges[0].(map[string]any)["target_handle"])
		inputs := body["inputs"].([]any)
		assert.Equal(t, map[string]any{"id": "input-1", "value": "hi"}, inputs[0])

		w.Write([]byte(`{"output-1":"42","mail-send-1":{"ok":true}}`))
	})

	n, err := graph.NewNode("input-1", graph.TypeInput, graph.Position{})
	require.NoError(t, err)
	res, err := c.Process(context.Background(), ProcessRequest{
		Nodes:  []graph.Node{n},
		Edges:  []graph.Edge{{ID: "e1", Source: "input-1", Target: "llm-1", TargetHandle: "var-name"}},
		Inputs: []types.InputValue{{ID: "input-1", Value: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "42", res["output-1"])
	assert.Equal(t, map[string]any{"ok": true}, res["mail-send-1"])
}

func TestProcessFailures(t *testing.T) {
	tests := []struct {
		name   string
		h      http.HandlerFunc
		status int
		detail string
	}{
		{
			name: "detail body",
			h: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"detail":"model exploded"}`))
			},
			status: 500,
			detail: "model exploded",
		},
		{
			name: "plain body",
			h: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "bad gateway", http.StatusBadGateway)
			},
			status: 502,
			detail: "bad gateway",
		},
		{
			name: "malformed json",
			h: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"output-1":`))
			},
			status: 200,
			detail: "malformed response",
		},
		{
			name: "trailing data",
			h: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"output-1":"42"} trailing-garbage`))
			},
			status: 200,
			detail: "malformed response",
		},
		{
			name: "null result",
			h: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`null`))
			},
			status: 200,
			detail: "malformed response",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, tt.h)
			_, err := c.Process(context.Background(), ProcessRequest{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTransport)

			var te *TransportError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, "process", te.Op)
			assert.Equal(t, tt.status, te.Status)
			assert.Equal(t, tt.detail, te.Detail)
		})
	}
}

func TestProcessNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := New(srv.URL, time.Second).Process(context.Background(), ProcessRequest{})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestAuthURL(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/gmail", r.URL.Path)
		assert.Equal(t, "mail-search-1", r.URL.Query().Get("nodeId"))
		json.NewEncoder(w).Encode(types.AuthURLResponse{URL: "https://accounts.example/consent"})
	})
	u, err := c.AuthURL(context.Background(), "mail-search-1")
	require.NoError(t, err)
	assert.Equal(t, "https://accounts.example/consent", u)
}

func TestAuthURLMissing(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	})
	_, err := c.AuthURL(context.Background(), "x")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestSearch(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/gmail/search", r.URL.Path)
		var req types.SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, types.SearchRequest{Query: "from:boss", MaxResults: 5}, req)
		w.Write([]byte(`{"messages":[{"id":"m1","subject":"hi","from":"boss@example.com"}]}`))
	})
	msgs, err := c.Search(context.Background(), "mail-search-1", types.SearchRequest{Query: "from:boss", MaxResults: 5})
	require.NoError(t, err)
	assert.Equal(t, []types.Message{{ID: "m1", Subject: "hi", From: "boss@example.com"}}, msgs)
}

func TestSend(t *testing.T) {
	var got types.SendRequest
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/gmail/send", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got.To == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"detail":"missing recipient"}`))
			return
		}
		w.Write([]byte(`{"status":"sent"}`))
	})

	require.NoError(t, c.Send(context.Background(), "mail-send-1", types.SendRequest{To: "a@b.c", Subject: "s", Body: "b"}))
	assert.Equal(t, "a@b.c", got.To)

	err := c.Send(context.Background(), "mail-send-1", types.SendRequest{})
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "missing recipient", te.Detail)
	assert.Equal(t, 400, te.Status)
}
