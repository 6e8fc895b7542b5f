package emit

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by recording each event as an
// OpenTelemetry span. The span name is event.Msg; standard fields
// (ThreadID, Step, NodeID) become span attributes under the "workflow"
// namespace. Meta entries become attributes too: the LLM cost keys,
// latency_ms, step_id, order_key and attempt are renamed into the
// "workflow" namespace, and other keys keep their own names. Spans are
// created and ended immediately since
// an Event is a point in time, not a duration.
type OTelEmitter struct {
	tracer trace.Tracer
	spans  []trace.Span
}

// NewOTelEmitter returns an OTelEmitter using tracer, typically obtained
// from otel.Tracer("<service-name>").
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{
		tracer: tracer,
		spans:  make([]trace.Span, 0),
	}
}

// Emit implements Emitter.
func (o *OTelEmitter) Emit(event Event) {
	ctx := context.Background()
	_, span := o.tracer.Start(ctx, event.Msg)
	defer span.End()

	o.addStandardAttributes(span, event)
	o.addMetadataAttributes(span, event.Meta)
	o.addConcurrencyAttributes(span, event.Meta)

	if err, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, err)
		span.RecordError(fmt.Errorf("%s", err))
	}
}

// EmitBatch records one span per event, preserving order.
func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		_, span := o.tracer.Start(ctx, event.Msg)

		o.addStandardAttributes(span, event)
		o.addMetadataAttributes(span, event.Meta)
		o.addConcurrencyAttributes(span, event.Meta)

		if err, ok := event.Meta["error"].(string); ok {
			span.SetStatus(codes.Error, err)
			span.RecordError(fmt.Errorf("%s", err))
		}

		span.End()
	}
	return nil
}

// Flush force-flushes the active TracerProvider if it supports it (e.g.
// an SDK provider backed by a batch span processor). A no-op provider
// that doesn't implement ForceFlush is left untouched.
func (o *OTelEmitter) Flush(ctx context.Context) error {
	tp := otel.GetTracerProvider()

	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := tp.(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}

func (o *OTelEmitter) addStandardAttributes(span trace.Span, event Event) {
	span.SetAttributes(
		attribute.String("workflow.thread_id", event.ThreadID),
		attribute.Int("workflow.step", event.Step),
		attribute.String("workflow.node_id", event.NodeID),
	)
}

// addMetadataAttributes converts event metadata to span attributes,
// mapping known LLM cost-tracking keys to workflow.llm.* names and
// converting time.Duration values to milliseconds.
func (o *OTelEmitter) addMetadataAttributes(span trace.Span, meta map[string]interface{}) {
	if meta == nil {
		return
	}

	for key, value := range meta {
		if key == "step_id" || key == "order_key" || key == "attempt" {
			continue
		}

		attrKey := key
		switch key {
		case "tokens_in":
			attrKey = "workflow.llm.tokens_in"
		case "tokens_out":
			attrKey = "workflow.llm.tokens_out"
		case "cost_usd":
			attrKey = "workflow.llm.cost_usd"
		case "latency_ms":
			attrKey = "workflow.node.latency_ms"
		case "model":
			attrKey = "workflow.llm.model"
		}

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
			span.SetAttributes(attribute.Int64(attrKey, int64(v/time.Millisecond)))
		default:
			span.SetAttributes(attribute.String(attrKey, fmt.Sprintf("%v", v)))
		}
	}
}

// addConcurrencyAttributes adds attributes for the fork/retry tracking
// fields: step_id (execution step identity), order_key (deterministic
// replay ordering), and attempt (retry count).
func (o *OTelEmitter) addConcurrencyAttributes(span trace.Span, meta map[string]interface{}) {
	if meta == nil {
		return
	}

	if stepID, ok := meta["step_id"].(string); ok {
		span.SetAttributes(attribute.String("workflow.step_id", stepID))
	}
	if orderKey, ok := meta["order_key"].(string); ok {
		span.SetAttributes(attribute.String("workflow.order_key", orderKey))
	}
	if attempt, ok := meta["attempt"].(int); ok {
		span.SetAttributes(attribute.Int("workflow.attempt", attempt))
	} else if attempt, ok := meta["attempt"].(int64); ok {
		span.SetAttributes(attribute.Int64("workflow.attempt", attempt))
	}
}
