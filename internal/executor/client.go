package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MalithGihan/flownodes/internal/graph"
	"github.com/MalithGihan/flownodes/pkg/types"
)

// ProcessRequest is the body of POST /process.
type ProcessRequest struct {
	Nodes  []graph.Node       `json:"nodes"`
	Edges  []graph.Edge       `json:"edges"`
	Inputs []types.InputValue `json:"inputs"`
}

// Client talks to the external executor service.
type Client struct {
	base string
	hc   *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Process(ctx context.Context, req ProcessRequest) (types.RunResult, error) {
	var out types.RunResult
	if err := c.do(ctx, "process", http.MethodPost, "/process", nil, req, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, &TransportError{Op: "process", Status: http.StatusOK, Detail: "malformed response", Err: errors.New("result is not an object")}
	}
	return out, nil
}

// AuthURL asks the executor for the provider URL that authorizes nodeID.
func (c *Client) AuthURL(ctx context.Context, nodeID string) (string, error) {
	var out types.AuthURLResponse
	q := url.Values{"nodeId": {nodeID}}
	if err := c.do(ctx, "auth", http.MethodGet, "/auth/gmail", q, nil, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", &TransportError{Op: "auth", Status: http.StatusOK, Detail: "response has no url"}
	}
	return out.URL, nil
}

func (c *Client) Search(ctx context.Context, nodeID string, req types.SearchRequest) ([]types.Message, error) {
	var out types.SearchResponse
	q := url.Values{"nodeId": {nodeID}}
	if err := c.do(ctx, "search", http.MethodPost, "/gmail/search", q, req, &out); err != nil {
		return nil, err
	}
	if out.Messages == nil {
		out.Messages = []types.Message{}
	}
	return out.Messages, nil
}

func (c *Client) Send(ctx context.Context, nodeID string, req types.SendRequest) error {
	q := url.Values{"nodeId": {nodeID}}
	return c.do(ctx, "send", http.MethodPost, "/gmail/send", q, req, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, body, out any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Detail: "encode request", Err: err}
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &TransportError{Op: op, Status: resp.StatusCode, Detail: detail(raw)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	// the whole body must be one JSON value; trailing data is malformed
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Detail: "malformed response", Err: err}
	}
	return nil
}

// detail pulls the message out of a {"detail": ...} error body, falling back
// to the raw text.
func detail(raw []byte) string {
	var eb types.ErrorBody
	if err := json.Unmarshal(raw, &eb); err == nil && eb.Detail != "" {
		return eb.Detail
	}
	return strings.TrimSpace(string(raw))
}
