// Command agentgraph runs agent workflow graphs from definition files.
//
// Usage:
//
//	agentgraph run    -f agent.yaml -input "What is the capital of France?"
//	agentgraph serve  -f agent.yaml -addr :8080
//
// Credentials and storage are read from the environment: OPENAI_API_KEY,
// ANTHROPIC_API_KEY, GOOGLE_API_KEY, DEEPSEEK_API_KEY, GROQ_API_KEY,
// XAI_API_KEY, TAVILY_API_KEY, EXA_API_KEY, AGENTGRAPH_DB (SQLite run
// history), AGENTGRAPH_MYSQL_DSN (MySQL run history), AGENTGRAPH_KB (SQLite
// knowledge base) and AGENTGRAPH_RELAY_TOKEN. serve mounts /v1/relay only
// when AGENTGRAPH_RELAY_TOKEN is set.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const usage = `usage: agentgraph <command> [flags]

commands:
  run     execute a graph once and print the result
  serve   expose a graph over HTTP with metrics (and a relay endpoint when
          AGENTGRAPH_RELAY_TOKEN is set)
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv))
}

// execute dispatches a subcommand and returns the process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	env := loadEnv(getenv)
	var err error
	switch args[0] {
	case "run":
		err = runCommand(ctx, args[1:], env, stdin, stdout, stderr)
	case "serve":
		err = serveCommand(ctx, args[1:], env, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if err != nil {
		if ee, ok := err.(exitError); ok {
			return int(ee)
		}
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

// exitError carries an exit code for failures that were already reported.
type exitError int

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}
