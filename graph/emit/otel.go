package emit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by turning run events into OpenTelemetry
// spans.
//
// run_start opens a "agentgraph.run" span that run_end closes. node_start
// opens a child "agentgraph.node <type>" span that node_end or node_error
// closes. A skipped node is recorded as a zero-length child span. Any other
// event, or one whose run span is unknown, becomes an instant span named
// after event.Msg.
//
// Identity is recorded as "agentgraph.*" attributes, together with every
// Meta entry. Events with Meta["error"] set the span status to Error.
//
// Usage:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
//	emitter := emit.NewOTelEmitter(otel.Tracer("agentgraph"))
type OTelEmitter struct {
	tracer trace.Tracer

	mu    sync.Mutex
	runs  map[string]runSpan
	nodes map[nodeKey]trace.Span
}

type runSpan struct {
	ctx  context.Context
	span trace.Span
}

type nodeKey struct {
	runID  string
	nodeID string
}

// NewOTelEmitter creates a new OTelEmitter from a tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{
		tracer: tracer,
		runs:   make(map[string]runSpan),
		nodes:  make(map[nodeKey]trace.Span),
	}
}

// Emit records the event.
func (o *OTelEmitter) Emit(event Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.Msg {
	case MsgRunStart:
		ctx, span := o.tracer.Start(context.Background(), "agentgraph.run")
		annotate(span, event)
		o.runs[event.RunID] = runSpan{ctx: ctx, span: span}
		return

	case MsgRunEnd:
		if rs, ok := o.runs[event.RunID]; ok {
			delete(o.runs, event.RunID)
			o.endOpenNodes(event.RunID)
			annotate(rs.span, event)
			rs.span.End()
			return
		}

	case MsgNodeStart:
		if rs, ok := o.runs[event.RunID]; ok {
			_, span := o.tracer.Start(rs.ctx, "agentgraph.node "+event.NodeType)
			annotate(span, event)
			o.nodes[nodeKey{event.RunID, event.NodeID}] = span
			return
		}

	case MsgNodeEnd, MsgNodeError:
		key := nodeKey{event.RunID, event.NodeID}
		if span, ok := o.nodes[key]; ok {
			delete(o.nodes, key)
			annotate(span, event)
			span.End()
			return
		}

	case MsgNodeSkipped:
		if rs, ok := o.runs[event.RunID]; ok {
			_, span := o.tracer.Start(rs.ctx, "agentgraph.node "+event.NodeType)
			annotate(span, event)
			span.End()
			return
		}
	}

	_, span := o.tracer.Start(context.Background(), event.Msg)
	annotate(span, event)
	span.End()
}

// endOpenNodes closes node spans left open by a run that stopped mid-node.
func (o *OTelEmitter) endOpenNodes(runID string) {
	for key, span := range o.nodes {
		if key.runID == runID {
			span.SetStatus(codes.Error, "run ended before node finished")
			span.End()
			delete(o.nodes, key)
		}
	}
}

// OpenSpans reports how many run and node spans are still open.
func (o *OTelEmitter) OpenSpans() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.runs) + len(o.nodes)
}

func annotate(span trace.Span, event Event) {
	span.SetAttributes(
		attribute.String("agentgraph.event", event.Msg),
		attribute.String("agentgraph.run_id", event.RunID),
	)
	if event.NodeID != "" {
		span.SetAttributes(
			attribute.Int("agentgraph.step", event.Step),
			attribute.String("agentgraph.node_id", event.NodeID),
			attribute.String("agentgraph.node_type", event.NodeType),
		)
	}

	for key, value := range event.Meta {
		attrKey := "agentgraph." + key
		switch v := value.(type) {
		case string:
			span.SetAttributes(attribute.String(attrKey, v))
		case int:
			span.SetAttributes(attribute.Int(attrKey, v))
		case int64:
			span.SetAttributes(attribute.Int64(attrKey, v))
		case float64:
			span.SetAttributes(attribute.Float64(attrKey, v))
		case bool:
			span.SetAttributes(attribute.Bool(attrKey, v))
		case time.Duration:
			span.SetAttributes(attribute.Int64(attrKey, v.Milliseconds()))
		default:
			span.SetAttributes(attribute.String(attrKey, fmt.Sprint(v)))
		}
	}

	if msg, ok := event.Meta["error"].(string); ok && msg != "" {
		span.SetStatus(codes.Error, msg)
		span.RecordError(errors.New(msg))
	}
}
