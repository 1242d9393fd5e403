// Package api exposes the graph session over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MalithGihan/flownodes/internal/engine"
	"github.com/MalithGihan/flownodes/internal/graph"
	"github.com/MalithGihan/flownodes/internal/ingest"
	"github.com/MalithGihan/flownodes/internal/mail"
	"github.com/MalithGihan/flownodes/internal/metrics"
	"github.com/MalithGihan/flownodes/internal/pipeline"
	"github.com/MalithGihan/flownodes/internal/session"
)

type Deps struct {
	Store   *graph.Store
	Runner  *pipeline.Runner
	Bridge  *session.Bridge
	Mail    *mail.Service
	Ingest  *ingest.Service
	Engine  *engine.Engine
	Metrics *metrics.Registry
	Logger  *slog.Logger
	// RedirectURL, if set, is where /auth/complete sends the browser.
	RedirectURL string
}

type Server struct {
	Deps
}

func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewRegistry()
	}
	return &Server{Deps: d}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.withLogger)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Metrics.Prometheus(), promhttp.HandlerOpts{}))

	r.Route("/graph", func(r chi.Router) {
		r.Get("/", s.getGraph)
		r.Put("/", s.putGraph)
		r.Post("/nodes", s.createNode)
		r.Post("/nodes/changes", s.nodeChanges)
		r.Delete("/nodes/{id}", s.deleteNode)
		r.Patch("/nodes/{id}", s.patchNode)
		r.Put("/nodes/{id}/value", s.putValue)
		r.Get("/nodes/{id}/ports", s.getPorts)
		r.Post("/edges/changes", s.edgeChanges)
		r.Get("/edges/stale", s.staleEdges)
		r.Post("/connect", s.connect)
	})

	r.Post("/run", s.run)
	r.Get("/run", s.runState)

	r.Route("/nodes/{id}", func(r chi.Router) {
		r.Post("/auth", s.beginAuth)
		r.Post("/search", s.search)
		r.Post("/send", s.send)
		r.Post("/file", s.upload)
	})
	r.Get("/auth/complete", s.completeAuth)

	r.Post("/api/process", s.process)
	return r
}
