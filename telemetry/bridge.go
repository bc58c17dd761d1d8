package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/archway-run/archway"
)

// Bridge subscribes to an archway.Bus and records chat-start/stop, error,
// tool-calling/called and inference-start events as OTEL spans and metrics
// via Instruments. rag-* and workflow lifecycle events are not recorded.
//
// Bridge keeps one open span per in-flight chat turn, keyed by the event's
// CorrelationID; chat-stop or error with the same CorrelationID ends it.
// Tool and inference metrics are recorded against the publisher's context,
// not the chat span's.
type Bridge struct {
	inst *Instruments

	mu    chan struct{} // binary semaphore guarding spans
	spans map[string]chatSpan
}

type chatSpan struct {
	ctx   context.Context
	span  trace.Span
	start time.Time
}

// NewBridge creates a Bridge backed by inst.
func NewBridge(inst *Instruments) *Bridge {
	return &Bridge{
		inst:  inst,
		mu:    make(chan struct{}, 1),
		spans: make(map[string]chatSpan),
	}
}

// Subscribe registers the bridge's handler on bus for every event ("*").
func (b *Bridge) Subscribe(bus *archway.Bus) {
	bus.Subscribe("*", b.handle)
}

func (b *Bridge) lock()   { b.mu <- struct{}{} }
func (b *Bridge) unlock() { <-b.mu }

func (b *Bridge) handle(ctx context.Context, event archway.Event) {
	switch event.Name {
	case archway.EventChatStart:
		b.startChatSpan(ctx, event)
	case archway.EventChatStop:
		b.endChatSpan(event, nil)
	case archway.EventToolCalling:
		b.inst.ToolExecutions.Add(ctx, 1, attribute.WithAttributes(
			AttrToolName.String(stringField(event.Payload, "tool"))))
	case archway.EventToolCalled:
		b.recordToolDuration(ctx, event)
	case archway.EventInferenceStart:
		b.inst.LLMRequests.Add(ctx, 1)
	case archway.EventError:
		b.endChatSpan(event, event.Err)
	}
}

func (b *Bridge) startChatSpan(ctx context.Context, event archway.Event) {
	spanCtx, span := b.inst.Tracer.Start(ctx, "agent.chat", trace.WithAttributes(
		AttrAgentName.String(event.Source)))
	b.lock()
	b.spans[event.CorrelationID] = chatSpan{ctx: spanCtx, span: span, start: time.Now()}
	b.unlock()
}

func (b *Bridge) endChatSpan(event archway.Event, err error) {
	b.lock()
	cs, ok := b.spans[event.CorrelationID]
	if ok {
		delete(b.spans, event.CorrelationID)
	}
	b.unlock()
	if !ok {
		return
	}
	if err != nil {
		cs.span.RecordError(err)
	}
	b.inst.AgentExecutions.Add(cs.ctx, 1)
	b.inst.AgentDuration.Record(cs.ctx, float64(time.Since(cs.start).Milliseconds()))
	cs.span.End()
}

func (b *Bridge) recordToolDuration(ctx context.Context, event archway.Event) {
	ms, _ := event.Payload["duration_ms"].(float64)
	b.inst.ToolDuration.Record(ctx, ms, attribute.WithAttributes(
		AttrToolName.String(stringField(event.Payload, "tool"))))
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}
