package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dshills/agentgraph-go/graph"
	"github.com/dshills/agentgraph-go/graph/definition"
	"github.com/dshills/agentgraph-go/graph/emit"
	"github.com/dshills/agentgraph-go/graph/knowledge"
	"github.com/dshills/agentgraph-go/graph/model"
	"github.com/dshills/agentgraph-go/graph/nodes"
	"github.com/dshills/agentgraph-go/graph/relay"
	"github.com/dshills/agentgraph-go/graph/search"
	"github.com/dshills/agentgraph-go/graph/store"
	"go.opentelemetry.io/otel"
)

// credentialEnv maps credential names, as node parameters refer to them, to
// environment variables.
var credentialEnv = map[string]string{
	model.ProviderOpenAI:    "OPENAI_API_KEY",
	model.ProviderAnthropic: "ANTHROPIC_API_KEY",
	model.ProviderGoogle:    "GOOGLE_API_KEY",
	model.ProviderDeepSeek:  "DEEPSEEK_API_KEY",
	model.ProviderGroq:      "GROQ_API_KEY",
	model.ProviderXAI:       "XAI_API_KEY",
	search.EngineTavily:     "TAVILY_API_KEY",
	search.EngineExa:        "EXA_API_KEY",
}

// environment is the process configuration read from environment variables.
type environment struct {
	keys       map[string]string
	dbPath     string
	mysqlDSN   string
	kbPath     string
	relayToken string
}

func loadEnv(getenv func(string) string) environment {
	env := environment{
		keys:       make(map[string]string),
		dbPath:     getenv("AGENTGRAPH_DB"),
		mysqlDSN:   getenv("AGENTGRAPH_MYSQL_DSN"),
		kbPath:     getenv("AGENTGRAPH_KB"),
		relayToken: getenv("AGENTGRAPH_RELAY_TOKEN"),
	}
	for name, variable := range credentialEnv {
		if v := getenv(variable); v != "" {
			env.keys[name] = v
		}
	}
	return env
}

// params returns fresh global parameters holding the configured credentials.
func (e environment) params() *graph.GlobalParameters {
	return graph.NewGlobalParameters(e.keys)
}

// runtime bundles everything a command needs to execute graphs.
type runtime struct {
	engine  *graph.Engine
	store   store.Store
	closers []io.Closer
}

func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i].Close())
	}
	return errors.Join(errs...)
}

type runtimeConfig struct {
	env      environment
	relayURL string
	logJSON  bool
	logger   *slog.Logger
	events   io.Writer
	metrics  *graph.PrometheusMetrics
	services *nodes.Services
}

// newRuntime opens the stores named by the environment and builds an engine
// over the built-in node catalog.
func newRuntime(cfg runtimeConfig) (*runtime, error) {
	rt := &runtime{}

	st, closer, err := openStore(cfg.env)
	if err != nil {
		return nil, err
	}
	rt.store = st
	if closer != nil {
		rt.closers = append(rt.closers, closer)
	}

	services := nodes.Services{}
	if cfg.services != nil {
		services = *cfg.services
	}
	if services.Knowledge == nil && cfg.env.kbPath != "" {
		kb, err := knowledge.NewSQLiteStore(cfg.env.kbPath)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		services.Knowledge = kb
		rt.closers = append(rt.closers, kb)
	}
	if services.Relay == nil && cfg.relayURL != "" {
		services.Relay = relay.NewClient(cfg.relayURL, cfg.env.relayToken)
	}

	emitters := emit.Multi{emit.NewOTelEmitter(otel.Tracer("agentgraph"))}
	if cfg.events != nil {
		emitters = append(emitters, emit.NewLogEmitter(cfg.events, cfg.logJSON))
	}

	opts := []graph.Option{
		graph.WithEmitter(emitters),
		graph.WithStore(st),
		graph.WithCostTracker(graph.NewCostTracker("agentgraph", "USD")),
	}
	if cfg.logger != nil {
		opts = append(opts, graph.WithLogger(cfg.logger))
	}
	if cfg.metrics != nil {
		opts = append(opts, graph.WithMetrics(cfg.metrics))
	}

	engine, err := graph.NewEngine(nodes.NewRegistry(services), opts...)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.engine = engine
	return rt, nil
}

// openStore picks the run history backend: MySQL, then SQLite, then memory.
func openStore(env environment) (store.Store, io.Closer, error) {
	switch {
	case env.mysqlDSN != "":
		st, err := store.NewMySQLStore(env.mysqlDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open MySQL store: %w", err)
		}
		return st, st, nil
	case env.dbPath != "":
		st, err := store.NewSQLiteStore(env.dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		return st, st, nil
	}
	return store.NewMemStore(), nil, nil
}

// loadGraph reads a definition file and builds it against the engine's
// registry.
func loadGraph(path string, engine *graph.Engine) (*graph.Graph, error) {
	if path == "" {
		return nil, errors.New("a definition file is required (-f)")
	}
	d, err := definition.Load(path)
	if err != nil {
		return nil, err
	}
	g, err := d.Build(engine.Registry())
	if err != nil {
		return nil, err
	}
	if _, err := engine.Plan(g); err != nil {
		return nil, err
	}
	return g, nil
}
