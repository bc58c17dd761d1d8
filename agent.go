package archway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// defaultMaxIterations bounds the tool-calling loop to prevent infinite
// tool loops.
const defaultMaxIterations = 10

// Agent is the unified surface application code drives: a blocking chat
// turn, a streamed turn, and a structured-output turn, all sharing the same
// conversation loop, tool dispatch, and observer fan-out.
type Agent interface {
	Name() string
	Chat(ctx context.Context, message Message) (Message, error)
	Stream(ctx context.Context, message Message) (func(yield func(StreamChunk) bool), error)
	Structured(ctx context.Context, message Message, schema ToolProperty, maxRetries int) (json.RawMessage, error)
}

// agentConfig accumulates AgentOption values before NewLLMAgent freezes
// them into an *LLMAgent.
type agentConfig struct {
	provider      Provider
	instructions  string
	history       ChatHistory
	tools         *ToolRegistry
	bus           *Bus
	maxIterations int
	logger        *slog.Logger
	params        *GenerationParams
}

// AgentOption configures an LLMAgent at construction time. There is no
// config-file loader; every option is a plain Go functional option.
type AgentOption func(*agentConfig)

// WithProvider sets the LLM backend the agent calls.
func WithProvider(p Provider) AgentOption {
	return func(c *agentConfig) { c.provider = p }
}

// WithInstructions sets the agent's base system instructions.
func WithInstructions(s string) AgentOption {
	return func(c *agentConfig) { c.instructions = s }
}

// WithChatHistory sets the ChatHistory the agent appends to. Chat-history
// singletons are rejected: callers must pass a history explicitly per
// agent (or per conversation), never reach for process-global state.
func WithChatHistory(h ChatHistory) AgentOption {
	return func(c *agentConfig) { c.history = h }
}

// AddTool registers a single tool.
func AddTool(t Tool) AgentOption {
	return func(c *agentConfig) { c.tools.Add(t) }
}

// AddToolkit registers every tool a Toolkit provides.
func AddToolkit(tk Toolkit) AgentOption {
	return func(c *agentConfig) { c.tools.AddToolkit(tk) }
}

// AddObserver subscribes obs to events matching pattern on the agent's Bus.
func AddObserver(pattern string, obs Observer) AgentOption {
	return func(c *agentConfig) { c.bus.Subscribe(pattern, obs) }
}

// WithMaxIterations overrides the default tool-calling loop bound (10).
func WithMaxIterations(n int) AgentOption {
	return func(c *agentConfig) { c.maxIterations = n }
}

// WithLogger sets the agent's structured logger.
func WithLogger(l *slog.Logger) AgentOption {
	return func(c *agentConfig) { c.logger = l }
}

// WithGenerationParams sets default sampling parameters merged into every
// provider call.
func WithGenerationParams(p *GenerationParams) AgentOption {
	return func(c *agentConfig) { c.params = p }
}

func buildAgentConfig(opts []AgentOption) *agentConfig {
	cfg := &agentConfig{
		tools:         NewToolRegistry(),
		bus:           NewBus(nil),
		maxIterations: defaultMaxIterations,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.history == nil {
		cfg.history = NewMemoryChatHistory(0)
	}
	return cfg
}

// LLMAgent is the reference Agent implementation: an LLM-backed
// conversation loop that interleaves provider calls with tool dispatch.
type LLMAgent struct {
	name          string
	provider      Provider
	instructions  string
	history       ChatHistory
	tools         *ToolRegistry
	bus           *Bus
	maxIterations int
	logger        *slog.Logger
	params        *GenerationParams
}

// NewLLMAgent creates an LLMAgent configured by opts.
func NewLLMAgent(name string, opts ...AgentOption) *LLMAgent {
	cfg := buildAgentConfig(opts)
	return &LLMAgent{
		name:          name,
		provider:      cfg.provider,
		instructions:  cfg.instructions,
		history:       cfg.history,
		tools:         cfg.tools,
		bus:           cfg.bus,
		maxIterations: cfg.maxIterations,
		logger:        cfg.logger,
		params:        cfg.params,
	}
}

func (a *LLMAgent) Name() string { return a.name }

// Instructions returns the agent's current effective instructions
// (including any RAG-injected <EXTRA-CONTEXT> block).
func (a *LLMAgent) Instructions() string { return a.instructions }

// SetInstructions replaces the agent's instructions wholesale. RAG uses
// this (via marker-delimited block replacement) to prevent accumulation.
func (a *LLMAgent) SetInstructions(s string) { a.instructions = s }

// Bus exposes the agent's Observer Bus so RAG/workflow wrappers can publish
// their own named events on the same bus the agent uses.
func (a *LLMAgent) Bus() *Bus { return a.bus }

// Chat runs the bounded tool-calling conversation loop for one user turn
// and returns the final assistant Message.
func (a *LLMAgent) Chat(ctx context.Context, message Message) (Message, error) {
	correlation := NewID()
	if err := a.history.Add(message); err != nil {
		return Message{}, &ChatHistoryError{Message: "append user message", Cause: err}
	}

	a.publish(ctx, correlation, EventChatStart, nil, nil)

	reply, _, err := a.runLoop(ctx, correlation)
	if err != nil {
		a.publish(ctx, correlation, EventError, nil, err)
		return Message{}, err
	}

	a.publish(ctx, correlation, EventChatStop, nil, nil)
	return reply, nil
}

// runLoop is the shared conversation loop driving Chat. It returns the
// final assistant Message and accumulated Usage.
func (a *LLMAgent) runLoop(ctx context.Context, correlation string) (Message, Usage, error) {
	var total Usage
	toolDefs := a.tools.Definitions()

	for i := 0; i < a.maxIterations; i++ {
		req := ChatRequest{
			Messages:     a.history.Snapshot(),
			Instructions: a.instructions,
			Tools:        toolDefs,
			Params:       a.params,
		}

		a.publish(ctx, correlation, EventInferenceStart, nil, nil)
		resp, err := a.provider.Chat(ctx, req)
		a.publish(ctx, correlation, EventInferenceStop, nil, nil)
		if err != nil {
			return Message{}, total, err
		}
		total.Add(resp.Usage)

		tc, isToolCall := resp.Message.Content.(ToolCallContent)
		if !isToolCall {
			if err := a.history.Add(resp.Message); err != nil {
				return Message{}, total, &ChatHistoryError{Message: "append assistant message", Cause: err}
			}
			return resp.Message, total, nil
		}

		if err := a.history.Add(resp.Message); err != nil {
			return Message{}, total, &ChatHistoryError{Message: "append tool-call message", Cause: err}
		}

		for _, call := range tc.Request.Calls {
			a.publish(ctx, correlation, EventToolCalling,
				map[string]any{"tool": call.Function.Name}, nil)

			result, execErr := a.tools.Execute(ctx, call.CallID, call.Function.Name, call.Function.ArgumentsJSON)
			if execErr != nil {
				result = ToolCallResult{CallID: call.CallID, ToolName: call.Function.Name,
					Content: "error: " + execErr.Error()}
			}

			a.publish(ctx, correlation, EventToolCalled,
				map[string]any{"tool": call.Function.Name}, nil)

			if err := a.history.Add(ToolResultMessage(result.CallID, result.ToolName, result.Content)); err != nil {
				return Message{}, total, &ChatHistoryError{Message: "append tool result", Cause: err}
			}
		}
	}

	a.logger.Warn("agent: max iterations reached, returning last assistant message", "agent", a.name)
	a.publish(ctx, correlation, EventError,
		map[string]any{"reason": "max_iterations"}, nil)
	snapshot := a.history.Snapshot()
	for i := len(snapshot) - 1; i >= 0; i-- {
		if snapshot[i].Role == RoleAssistant {
			return snapshot[i], total, nil
		}
	}
	return Message{}, total, &AgentError{Message: "max iterations reached with no prior assistant message"}
}

// Stream runs the conversation loop. With no tools registered, the single
// turn is streamed from the provider. With any tool registered, every turn
// (the final tool-free one included) uses blocking Chat, and the final reply
// is yielded as a single chunk.
func (a *LLMAgent) Stream(ctx context.Context, message Message) (func(yield func(StreamChunk) bool), error) {
	correlation := NewID()
	if err := a.history.Add(message); err != nil {
		return nil, &ChatHistoryError{Message: "append user message", Cause: err}
	}
	a.publish(ctx, correlation, EventChatStart, nil, nil)

	toolDefs := a.tools.Definitions()

	for i := 0; i < a.maxIterations; i++ {
		req := ChatRequest{
			Messages:     a.history.Snapshot(),
			Instructions: a.instructions,
			Tools:        toolDefs,
			Params:       a.params,
		}

		if len(toolDefs) == 0 {
			a.publish(ctx, correlation, EventInferenceStart, nil, nil)
			seq, err := a.provider.Stream(ctx, req)
			if err != nil {
				a.publish(ctx, correlation, EventError, nil, err)
				return nil, err
			}
			return a.wrapFinalStream(ctx, correlation, seq), nil
		}

		a.publish(ctx, correlation, EventInferenceStart, nil, nil)
		resp, err := a.provider.Chat(ctx, req)
		a.publish(ctx, correlation, EventInferenceStop, nil, nil)
		if err != nil {
			a.publish(ctx, correlation, EventError, nil, err)
			return nil, err
		}

		tc, isToolCall := resp.Message.Content.(ToolCallContent)
		if !isToolCall {
			_ = a.history.Add(resp.Message)
			a.publish(ctx, correlation, EventChatStop, nil, nil)
			text := resp.Message.Text()
			return func(yield func(StreamChunk) bool) { yield(StreamChunk{Text: text}) }, nil
		}

		_ = a.history.Add(resp.Message)
		for _, call := range tc.Request.Calls {
			a.publish(ctx, correlation, EventToolCalling, map[string]any{"tool": call.Function.Name}, nil)
			result, execErr := a.tools.Execute(ctx, call.CallID, call.Function.Name, call.Function.ArgumentsJSON)
			if execErr != nil {
				result = ToolCallResult{CallID: call.CallID, ToolName: call.Function.Name, Content: "error: " + execErr.Error()}
			}
			a.publish(ctx, correlation, EventToolCalled, map[string]any{"tool": call.Function.Name}, nil)
			_ = a.history.Add(ToolResultMessage(result.CallID, result.ToolName, result.Content))
		}
	}

	return nil, &AgentError{Message: "max iterations reached before a streamable turn"}
}

// wrapFinalStream relays the provider's stream to the caller, then appends
// the accumulated assistant message to history and publishes chat-stop once
// the sequence is exhausted.
func (a *LLMAgent) wrapFinalStream(ctx context.Context, correlation string, seq func(yield func(StreamChunk) bool)) func(yield func(StreamChunk) bool) {
	return func(yield func(StreamChunk) bool) {
		var text strings.Builder
		var usage Usage
		seq(func(c StreamChunk) bool {
			if c.Err != nil {
				a.publish(ctx, correlation, EventError, nil, c.Err)
				return yield(c)
			}
			text.WriteString(c.Text)
			if c.Usage != nil {
				usage = *c.Usage
			}
			return yield(c)
		})
		final := AssistantMessage(text.String())
		final.Usage = &usage
		_ = a.history.Add(final)
		a.publish(ctx, correlation, EventChatStop, nil, nil)
	}
}

// Structured delegates to provider.Structured, retrying up to maxRetries
// times (in addition to whatever retry the provider performs internally)
// if the returned payload fails to parse as valid JSON.
func (a *LLMAgent) Structured(ctx context.Context, message Message, schema ToolProperty, maxRetries int) (json.RawMessage, error) {
	correlation := NewID()
	if err := a.history.Add(message); err != nil {
		return nil, &ChatHistoryError{Message: "append user message", Cause: err}
	}
	a.publish(ctx, correlation, EventStructuredExtracting, nil, nil)

	instructions := a.instructions
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req := ChatRequest{
			Messages:     a.history.Snapshot(),
			Instructions: instructions,
			Params:       a.params,
		}
		payload, usage, err := a.provider.Structured(ctx, req, schema)
		if err != nil {
			a.publish(ctx, correlation, EventError, nil, err)
			return nil, err
		}
		var probe json.RawMessage
		if jsonErr := json.Unmarshal([]byte(payload), &probe); jsonErr == nil {
			result := AssistantMessage(payload)
			result.Usage = &usage
			_ = a.history.Add(result)
			a.publish(ctx, correlation, EventStructuredExtracted, nil, nil)
			return probe, nil
		} else {
			lastErr = jsonErr
			instructions = a.instructions + "\n\nYour previous response was not valid JSON. Respond with JSON only."
		}
	}
	err := &AgentError{Message: fmt.Sprintf("structured output did not parse after %d retries", maxRetries), Cause: lastErr}
	a.publish(ctx, correlation, EventError, nil, err)
	return nil, err
}

func (a *LLMAgent) publish(ctx context.Context, correlation, name string, payload map[string]any, err error) {
	a.bus.Publish(ctx, Event{Name: name, Source: a.name, CorrelationID: correlation, Payload: payload, Err: err})
}

// removeDelimitedContent strips the first balanced block delimited by
// openTag/closeTag from text. If openTag is not found, text is returned
// unchanged.
func removeDelimitedContent(text, openTag, closeTag string) string {
	start := strings.Index(text, openTag)
	if start < 0 {
		return text
	}
	rest := text[start+len(openTag):]
	end := strings.Index(rest, closeTag)
	if end < 0 {
		return text
	}
	return text[:start] + rest[end+len(closeTag):]
}

var _ Agent = (*LLMAgent)(nil)
