package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MalithGihan/flownodes/internal/engine"
	"github.com/MalithGihan/flownodes/internal/executor"
	"github.com/MalithGihan/flownodes/internal/graph"
	"github.com/MalithGihan/flownodes/internal/ingest"
	"github.com/MalithGihan/flownodes/internal/mail"
	"github.com/MalithGihan/flownodes/internal/metrics"
	"github.com/MalithGihan/flownodes/internal/pipeline"
	"github.com/MalithGihan/flownodes/internal/session"
	"github.com/MalithGihan/flownodes/internal/store"
)

type env struct {
	srv   *httptest.Server
	store *graph.Store
}

// newEnv wires the service against a fake executor. The executor evaluates
// /process with the in-process engine and answers the mail endpoints.
func newEnv(t *testing.T) *env {
	t.Helper()
	eng := engine.New(engine.Echo{})

	exec := http.NewServeMux()
	exec.HandleFunc("POST /process", func(w http.ResponseWriter, r *http.Request) {
		var req executor.ProcessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		res, err := eng.Process(r.Context(), req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(res)
	})
	exec.HandleFunc("GET /auth/gmail", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"url": "https://provider.example/consent?n=" + r.URL.Query().Get("nodeId")})
	})
	exec.HandleFunc("POST /gmail/search", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"messages":[{"id":"m1","subject":"Hello","from":"a@example.com"}]}`))
	})
	exec.HandleFunc("POST /gmail/send", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	execSrv := httptest.NewServer(exec)
	t.Cleanup(execSrv.Close)

	fs, err := store.New(t.TempDir())
	require.NoError(t, err)
	m := metrics.NewRegistry()
	st := graph.NewStore(graph.WithObserver(m))
	client := executor.New(execSrv.URL, 5*time.Second)
	storage, err := session.NewFileStorage(fs)
	require.NoError(t, err)

	s := New(Deps{
		Store:   st,
		Runner:  pipeline.New(st, client, pipeline.WithRecorder(m)),
		Bridge:  session.New(st, storage, client),
		Mail:    mail.New(st, client, m),
		Ingest:  ingest.New(st, fs, m),
		Engine:  eng,
		Metrics: m,
	})
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return &env{srv: srv, store: st}
}

func (e *env) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func (e *env) create(t *testing.T, typ string, data map[string]any) string {
	t.Helper()
	resp, b := e.do(t, http.MethodPost, "/graph/nodes", map[string]any{"type": typ, "position": map[string]float64{"x": 1, "y": 2}, "data": data})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(b))
	var n struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(b, &n))
	return n.ID
}

func detail(t *testing.T, b []byte) string {
	t.Helper()
	var eb struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(b, &eb))
	return eb.Detail
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	resp, b := e.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true,"service":"flownodes"}`, string(b))
}

func TestBuildAndRunPipeline(t *testing.T) {
	e := newEnv(t)
	in := e.create(t, "input", nil)
	llm := e.create(t, "llm", map[string]any{"promptTemplate": "Hi {name}"})
	out := e.create(t, "output", nil)

	resp, b := e.do(t, http.MethodGet, "/graph/nodes/"+llm+"/ports", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), `"var-name"`)

	resp, b = e.do(t, http.MethodPost, "/graph/connect", map[string]string{"source": in, "target": llm, "targetHandle": "var-status"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, detail(t, b), "status")

	resp, _ = e.do(t, http.MethodPost, "/graph/connect", map[string]string{"source": in, "target": llm, "targetHandle": "var-name"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = e.do(t, http.MethodPost, "/graph/connect", map[string]string{"source": llm, "target": out})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = e.do(t, http.MethodPost, "/graph/connect", map[string]string{"source": llm, "target": out})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPut, "/graph/nodes/"+in+"/value", map[string]string{"value": "Ada"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, b = e.do(t, http.MethodPost, "/run", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	var rep pipeline.Report
	require.NoError(t, json.Unmarshal(b, &rep))
	assert.Equal(t, []string{out}, rep.Applied)

	n, ok := e.store.Node(out)
	require.True(t, ok)
	assert.Equal(t, "Hi Ada", n.Data.Value)

	resp, b = e.do(t, http.MethodGet, "/run", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"running":false}`, string(b))
}

func TestNodeErrors(t *testing.T) {
	e := newEnv(t)
	id := e.create(t, "mail-search", nil)

	resp, _ := e.do(t, http.MethodPost, "/graph/nodes", map[string]any{"type": "widget"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPatch, "/graph/nodes/ghost", map[string]any{"field": "x", "value": 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPatch, "/graph/nodes/"+id, map[string]any{"field": "variables", "value": []string{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, b := e.do(t, http.MethodPatch, "/graph/nodes/"+id, map[string]any{"field": "maxResults", "value": 9})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), `"maxResults":9`)

	resp, _ = e.do(t, http.MethodPost, "/graph/nodes/changes", []map[string]any{{"type": "select", "id": id}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, http.MethodDelete, "/graph/nodes/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = e.do(t, http.MethodDelete, "/graph/nodes/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMailFlow(t *testing.T) {
	e := newEnv(t)
	id := e.create(t, "mail-search", map[string]any{"searchQuery": "from:a"})

	resp, _ := e.do(t, http.MethodPost, "/nodes/"+id+"/search", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, b := e.do(t, http.MethodPost, "/nodes/"+id+"/auth", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), "provider.example")

	resp, b = e.do(t, http.MethodGet, "/auth/complete?authSuccess=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"restored":true,"pendingAuthNodeId":"`+id+`"}`, string(b))

	resp, b = e.do(t, http.MethodGet, "/auth/complete?authSuccess=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), `"restored":false`)

	resp, b = e.do(t, http.MethodPost, "/nodes/"+id+"/search", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	assert.Contains(t, string(b), `"subject":"Hello"`)

	send := e.create(t, "mail-send", map[string]any{"to": "b@example.com", "subject": "S"})
	resp, _ = e.do(t, http.MethodPost, "/nodes/"+send+"/send", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	e.do(t, http.MethodPut, "/graph/nodes/"+send+"/value", map[string]string{"value": "body"})
	resp, _ = e.do(t, http.MethodPost, "/nodes/"+send+"/send", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpload(t *testing.T) {
	e := newEnv(t)
	id := e.create(t, "file", nil)

	post := func(name, content string) *http.Response {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		fw.Write([]byte(content))
		require.NoError(t, mw.Close())
		resp, err := http.Post(e.srv.URL+"/nodes/"+id+"/file", mw.FormDataContentType(), &buf)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	assert.Equal(t, http.StatusUnsupportedMediaType, post("pic.png", "x").StatusCode)
	require.Equal(t, http.StatusCreated, post("notes.txt", "some notes").StatusCode)

	n, _ := e.store.Node(id)
	f := n.Data.Fields.(graph.FileFields)
	assert.Equal(t, "notes.txt", f.FileName)
	assert.Equal(t, "text/plain", f.FileType)
	assert.Equal(t, "some notes", f.FileContent)
}

func TestProcessEndpoint(t *testing.T) {
	e := newEnv(t)
	body := `{"nodes":[
		{"id":"input-1","type":"input","data":{"id":"input-1","nodeType":"input"}},
		{"id":"output-1","type":"output","data":{"id":"output-1","nodeType":"output"}}],
		"edges":[{"id":"e1","source":"input-1","target":"output-1","target_handle":"input"}],
		"inputs":[{"id":"input-1","value":"echo"}]}`
	resp, err := http.Post(e.srv.URL+"/api/process", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	assert.JSONEq(t, `{"output-1":"echo"}`, string(b))
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t)
	e.create(t, "input", nil)
	resp, b := e.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), "flownodes_graph_nodes 1")
	assert.Contains(t, string(b), `flownodes_http_requests_total{method="POST",route="/graph/nodes",status="201"} 1`)
}
