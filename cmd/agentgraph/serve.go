package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dshills/agentgraph-go/graph"
	"github.com/dshills/agentgraph-go/graph/relay"
	"github.com/dshills/agentgraph-go/graph/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxRunBody = 1 << 20

func serveCommand(ctx context.Context, args []string, env environment, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("f", "", "graph definition file (YAML or JSON)")
	addr := fs.String("addr", ":8080", "listen address")
	jsonLogs := fs.Bool("json-logs", false, "log as JSON")
	if err := fs.Parse(args); err != nil {
		return exitError(2)
	}

	var handler slog.Handler = slog.NewTextHandler(stderr, nil)
	if *jsonLogs {
		handler = slog.NewJSONHandler(stderr, nil)
	}
	logger := slog.New(handler)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rt, err := newRuntime(runtimeConfig{
		env:     env,
		logJSON: *jsonLogs,
		logger:  logger,
		events:  stderr,
		metrics: graph.NewPrometheusMetrics(registry),
	})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	g, err := loadGraph(*file, rt.engine)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newServer(rt, g, env, logger, registry).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", *addr, "graph", *file, "relay", env.relayToken != "")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// server exposes one graph over HTTP.
type server struct {
	rt       *runtime
	g        *graph.Graph
	env      environment
	logger   *slog.Logger
	registry *prometheus.Registry
}

func newServer(rt *runtime, g *graph.Graph, env environment, logger *slog.Logger, registry *prometheus.Registry) *server {
	return &server{rt: rt, g: g, env: env, logger: logger, registry: registry}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /v1/nodes", s.handleCatalog)
	mux.HandleFunc("POST /v1/runs", s.handleRun)
	mux.HandleFunc("GET /v1/runs", s.handleListRuns)
	mux.HandleFunc("GET /v1/runs/{id}", s.handleGetRun)
	if s.env.relayToken != "" {
		mux.Handle("/v1/relay", relay.NewHandler(relay.NewDirect(), s.env.relayToken, s.logger))
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

type catalogEntry struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Terminal    bool   `json:"terminal,omitempty"`
}

func (s *server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	reg := s.rt.engine.Registry()
	var out []catalogEntry
	for _, typ := range reg.Types() {
		d, _ := reg.Lookup(typ)
		out = append(out, catalogEntry{
			Type: d.Type, Title: d.Title, Category: d.Category,
			Description: d.Description, Terminal: d.Terminal,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req graph.RunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRunBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid run request: "+err.Error())
		return
	}

	res, err := s.rt.engine.Run(r.Context(), s.g, s.env.params(), req)
	if res == nil {
		s.logger.Error("run rejected", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err != nil {
		s.logger.Warn("run did not succeed", "run_id", res.RunID, "error", err)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	runs, err := s.rt.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

type runDetail struct {
	store.RunRecord
	Steps []store.StepRecord `json:"steps"`
}

func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := s.rt.store.LoadRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run "+id+" not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	steps, err := s.rt.store.LoadSteps(r.Context(), id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runDetail{RunRecord: run, Steps: steps})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
