package emit

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LogEmitter renders events as structured log records through log/slog.
//
// Node and run failures are logged at error level, skips at debug level and
// everything else at info level.
//
// Example text output:
//
//	level=INFO msg=node_end run_id=run-001 step=2 node_id=search node_type=search duration_ms=41
//
// Usage:
//
//	// Text output to stdout
//	emitter := emit.NewLogEmitter(os.Stdout, false)
//
//	// JSON output through an existing logger
//	emitter := emit.NewSlogEmitter(logger)
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter creates a LogEmitter writing to writer, using a JSON handler
// when jsonMode is set and a text handler otherwise.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	var handler slog.Handler
	if jsonMode {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}
	return &LogEmitter{logger: slog.New(handler)}
}

// NewSlogEmitter creates a LogEmitter on top of an existing logger.
func NewSlogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger}
}

// Emit writes the event as one log record.
func (l *LogEmitter) Emit(event Event) {
	attrs := make([]slog.Attr, 0, 4+len(event.Meta))
	attrs = append(attrs, slog.String("run_id", event.RunID))
	if event.NodeID != "" {
		attrs = append(attrs,
			slog.Int("step", event.Step),
			slog.String("node_id", event.NodeID),
			slog.String("node_type", event.NodeType),
		)
	}
	for k, v := range event.Meta {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.LogAttrs(context.Background(), levelFor(event), event.Msg, attrs...)
}

func levelFor(event Event) slog.Level {
	switch event.Msg {
	case MsgNodeError:
		return slog.LevelError
	case MsgNodeSkipped:
		return slog.LevelDebug
	case MsgRunEnd:
		if _, failed := event.Meta["error"]; failed {
			return slog.LevelError
		}
	}
	return slog.LevelInfo
}
