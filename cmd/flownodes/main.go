package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MalithGihan/flownodes/internal/api"
	"github.com/MalithGihan/flownodes/internal/config"
	"github.com/MalithGihan/flownodes/internal/ctxlog"
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

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := ctxlog.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)

	fs, err := store.New(cfg.DataRoot)
	if err != nil {
		log.Fatal(err)
	}
	m := metrics.NewRegistry()

	gs := graph.NewStore(
		graph.WithLogger(logger.With("component", "graph")),
		graph.WithPolicy(graph.Policy{AllowSelfLoops: cfg.AllowSelfLoops}),
		graph.WithStaleEdges(graph.StalePolicy(cfg.StaleEdges)),
		graph.WithObserver(m),
	)

	var gen engine.Generator = engine.NewOllama(cfg.OllamaURL, cfg.OllamaModel, cfg.ExecutorTimeout)
	if cfg.Generator == "mock" {
		gen = engine.Echo{}
	}
	eng := engine.New(gen)
	client := executor.New(cfg.ExecutorURL, cfg.ExecutorTimeout)

	var exec pipeline.Executor = client
	if cfg.ExecutorMode == "local" {
		exec = eng
	}

	storage, err := session.NewFileStorage(fs)
	if err != nil {
		log.Fatal(err)
	}

	srv := api.New(api.Deps{
		Store:       gs,
		Runner:      pipeline.New(gs, exec, pipeline.WithRecorder(m)),
		Bridge:      session.New(gs, storage, client, session.WithLogger(logger.With("component", "session"))),
		Mail:        mail.New(gs, client, m),
		Ingest:      ingest.New(gs, fs, m),
		Engine:      eng,
		Metrics:     m,
		Logger:      logger,
		RedirectURL: cfg.RedirectURL,
	})

	hs := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("flownodes listening", "addr", hs.Addr, "executor", cfg.ExecutorURL, "mode", cfg.ExecutorMode)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
	logger.Info("stopped")
}
