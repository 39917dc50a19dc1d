package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/modkit/internal/core/ports"
)

const (
	skippedAttr     = attribute.Key("skipped")
	exceptionEvent  = "exception"
	exceptionMsgKey = attribute.Key("exception.message")
)

// Bridge is a span processor that turns installer steps into renderer events.
// Every span is one step; nesting follows the span parent.
type Bridge struct {
	renderer ports.Renderer
}

// NewBridge returns a Bridge feeding renderer. A nil renderer drops all events.
func NewBridge(renderer ports.Renderer) *Bridge {
	return &Bridge{renderer: renderer}
}

func (b *Bridge) stepID(sc trace.SpanContext) (string, bool) {
	if b.renderer == nil || !sc.IsValid() {
		return "", false
	}
	return sc.SpanID().String(), true
}

// OnStart announces a step.
func (b *Bridge) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	id, ok := b.stepID(s.SpanContext())
	if !ok {
		return
	}

	parentID, _ := b.stepID(trace.SpanContextFromContext(parent))
	b.renderer.OnStepStart(id, parentID, s.Name(), s.StartTime())
}

// OnEnd completes a step. Hooks that were skipped get a log line first.
func (b *Bridge) OnEnd(s sdktrace.ReadOnlySpan) {
	id, ok := b.stepID(s.SpanContext())
	if !ok {
		return
	}

	if skipped(s) {
		b.renderer.OnStepLog(id, []byte("skipped\n"))
	}
	b.renderer.OnStepComplete(id, s.EndTime(), stepError(s))
}

// stepError rebuilds the step failure from the span status, falling back to
// the last recorded exception.
func stepError(s sdktrace.ReadOnlySpan) error {
	if s.Status().Code != codes.Error {
		return nil
	}

	msg := s.Status().Description
	if msg == "" {
		events := s.Events()
		for i := len(events) - 1; i >= 0 && msg == ""; i-- {
			if events[i].Name != exceptionEvent {
				continue
			}
			for _, kv := range events[i].Attributes {
				if kv.Key == exceptionMsgKey {
					msg = kv.Value.AsString()
				}
			}
		}
	}
	if msg == "" {
		msg = "step failed"
	}
	return errors.New(msg)
}

func skipped(s sdktrace.ReadOnlySpan) bool {
	for _, kv := range s.Attributes() {
		if kv.Key == skippedAttr {
			return kv.Value.Type() == attribute.BOOL && kv.Value.AsBool()
		}
	}
	return false
}

// ForceFlush is a no-op; events are delivered synchronously.
func (b *Bridge) ForceFlush(context.Context) error { return nil }

// Shutdown is a no-op; the tracer stops the renderer itself.
func (b *Bridge) Shutdown(context.Context) error { return nil }
