package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/archway-run/archway"
)

// OTELTracer adapts an OTEL trace.Tracer to archway.Tracer, letting ingest
// (and any other archway.Tracer consumer) create spans without importing
// OTEL directly.
type OTELTracer struct {
	tracer trace.Tracer
}

// NewOTELTracer wraps inst's configured tracer as an archway.Tracer.
func NewOTELTracer(inst *Instruments) OTELTracer {
	return OTELTracer{tracer: inst.Tracer}
}

func (t OTELTracer) Start(ctx context.Context, name string, attrs ...archway.SpanAttr) (context.Context, archway.Span) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toOTELAttrs(attrs)...))
	return spanCtx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) SetAttr(attrs ...archway.SpanAttr) {
	s.span.SetAttributes(toOTELAttrs(attrs)...)
}

func (s otelSpan) Event(name string, attrs ...archway.SpanAttr) {
	s.span.AddEvent(name, trace.WithAttributes(toOTELAttrs(attrs)...))
}

func (s otelSpan) Error(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s otelSpan) End() { s.span.End() }

func toOTELAttrs(attrs []archway.SpanAttr) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		switch v := a.Value.(type) {
		case string:
			out = append(out, attribute.String(a.Key, v))
		case int:
			out = append(out, attribute.Int(a.Key, v))
		case bool:
			out = append(out, attribute.Bool(a.Key, v))
		case float64:
			out = append(out, attribute.Float64(a.Key, v))
		default:
			out = append(out, attribute.String(a.Key, fmt.Sprintf("%v", v)))
		}
	}
	return out
}

var _ archway.Tracer = OTELTracer{}
var _ archway.Span = otelSpan{}
