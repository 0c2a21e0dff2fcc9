package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dshills/agentgraph-go/graph"
)

func runCommand(ctx context.Context, args []string, env environment, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("f", "", "graph definition file (YAML or JSON)")
	input := fs.String("input", "", "run input; - reads it from stdin")
	valuesJSON := fs.String("values", "", "structured run values as a JSON object")
	runID := fs.String("id", "", "run ID (random when empty)")
	relayURL := fs.String("relay", "", "relay endpoint for outbound HTTP (in-process when empty)")
	verbose := fs.Bool("v", false, "log engine events to stderr")
	jsonLogs := fs.Bool("json-logs", false, "log engine events as JSON")
	if err := fs.Parse(args); err != nil {
		return exitError(2)
	}

	req := graph.RunRequest{RunID: *runID, Input: *input}
	if *input == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		req.Input = strings.TrimRight(string(data), "\r\n")
	}
	if *valuesJSON != "" {
		if err := json.Unmarshal([]byte(*valuesJSON), &req.Values); err != nil {
			return fmt.Errorf("invalid -values: %w", err)
		}
	}

	cfg := runtimeConfig{
		env:      env,
		relayURL: *relayURL,
		logJSON:  *jsonLogs,
		logger:   slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}
	if *verbose {
		cfg.events = stderr
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	g, err := loadGraph(*file, rt.engine)
	if err != nil {
		return err
	}

	res, err := rt.engine.Run(ctx, g, env.params(), req)
	if res == nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(res); encErr != nil {
		return encErr
	}

	var runErr *graph.RunError
	if errors.As(err, &runErr) {
		return exitError(1)
	}
	return err
}
