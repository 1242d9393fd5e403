package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MalithGihan/flownodes/internal/ctxlog"
	"github.com/MalithGihan/flownodes/internal/executor"
	"github.com/MalithGihan/flownodes/internal/graph"
	"github.com/MalithGihan/flownodes/internal/ingest"
	"github.com/MalithGihan/flownodes/internal/mail"
	"github.com/MalithGihan/flownodes/internal/pipeline"
	"github.com/MalithGihan/flownodes/pkg/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an error onto a status code and a {"detail": ...} body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var br *badRequest
	switch {
	case errors.As(err, &br):
		status = http.StatusBadRequest
	case errors.Is(err, graph.ErrDuplicateID), errors.Is(err, graph.ErrDuplicateEdge):
		status = http.StatusConflict
	case errors.Is(err, graph.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, graph.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, pipeline.ErrRunInProgress):
		status = http.StatusConflict
	case errors.Is(err, executor.ErrTransport):
		status = http.StatusBadGateway
	case errors.Is(err, mail.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, mail.ErrMissingFields), errors.Is(err, mail.ErrWrongNodeType), errors.Is(err, ingest.ErrNotFileNode):
		status = http.StatusBadRequest
	case errors.Is(err, ingest.ErrUnsupportedFile):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, ingest.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	}
	log := ctxlog.FromContext(r.Context())
	if status >= 500 {
		log.Error("request failed", "status", status, "err", err)
	} else {
		log.Debug("request rejected", "status", status, "err", err)
	}
	writeJSON(w, status, types.ErrorBody{Detail: err.Error()})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"ok":true,"service":"flownodes"}`))
}

func (s *Server) getGraph(w http.ResponseWriter, _ *http.Request) {
	v := s.Store.Version()
	g := s.Store.Snapshot()
	writeJSON(w, http.StatusOK, graphResponse{Nodes: g.Nodes, Edges: g.Edges, Version: v})
}

func (s *Server) putGraph(w http.ResponseWriter, r *http.Request) {
	var req graphRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Store.ReplaceAll(req.Nodes, req.Edges); err != nil {
		writeError(w, r, err)
		return
	}
	s.getGraph(w, r)
}

func (s *Server) createNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.Store.CreateNode(graph.NodeType(req.Type), req.Position, req.Data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.RemoveNode(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) patchNode(w http.ResponseWriter, r *http.Request) {
	var req patchNodeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.Store.UpdateField(id, req.Field, req.Value); err != nil {
		writeError(w, r, err)
		return
	}
	n, _ := s.Store.Node(id)
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) putValue(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.Store.UpdateValue(id, *req.Value); err != nil {
		writeError(w, r, err)
		return
	}
	n, _ := s.Store.Node(id)
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) getPorts(w http.ResponseWriter, r *http.Request) {
	ports, err := s.Store.Ports(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ports)
}

func (s *Server) nodeChanges(w http.ResponseWriter, r *http.Request) {
	var changes []graph.NodeChange
	if err := decodeJSON(r, &changes); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Store.ApplyNodeChanges(changes); err != nil {
		writeError(w, r, err)
		return
	}
	s.getGraph(w, r)
}

func (s *Server) edgeChanges(w http.ResponseWriter, r *http.Request) {
	var changes []graph.EdgeChange
	if err := decodeJSON(r, &changes); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Store.ApplyEdgeChanges(changes); err != nil {
		writeError(w, r, err)
		return
	}
	s.getGraph(w, r)
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	var c graph.Connection
	if err := decode(r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.Store.Connect(c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) staleEdges(w http.ResponseWriter, _ *http.Request) {
	stale := s.Store.StaleEdges()
	if stale == nil {
		stale = []graph.Edge{}
	}
	writeJSON(w, http.StatusOK, stale)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	rep, err := s.Runner.Run(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) runState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"running": s.Runner.Running()})
}

func (s *Server) beginAuth(w http.ResponseWriter, r *http.Request) {
	u, err := s.Bridge.BeginAuthorization(r.Context(), chi.URLParam(r, "id"))
	s.Metrics.RecordAction("auth", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.AuthURLResponse{URL: u})
}

func (s *Server) completeAuth(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.Bridge.CompleteAuthorization(r.URL.Query())
	if s.RedirectURL != "" {
		http.Redirect(w, r, s.RedirectURL, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"restored":          ok,
		"pendingAuthNodeId": snap.PendingAuthNodeID,
	})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.Mail.Search(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.SearchResponse{Messages: msgs})
}

func (s *Server) send(w http.ResponseWriter, r *http.Request) {
	res, err := s.Mail.Send(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, ingest.MaxSize+(1<<20))
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, r, ingest.ErrTooLarge)
			return
		}
		writeError(w, r, &badRequest{err})
		return
	}
	defer r.MultipartForm.RemoveAll()

	f, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, &badRequest{err})
		return
	}
	defer f.Close()

	up, err := s.Ingest.Accept(r.Context(), chi.URLParam(r, "id"), fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, up)
}

// process serves the in-process executor under the executor's own contract.
func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	var req executor.ProcessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.Engine.Process(r.Context(), req)
	if err != nil {
		ctxlog.FromContext(r.Context()).Error("process failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, types.ErrorBody{Detail: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}
