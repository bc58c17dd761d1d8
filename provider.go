package archway

import "context"

// ChatRequest carries everything a Provider needs to produce one turn:
// the message history, the effective instructions (system prompt, possibly
// RAG-augmented), and the tool declarations available this turn.
type ChatRequest struct {
	Messages     []Message
	Instructions string
	Tools        []ToolDefinition
	Params       *GenerationParams
}

// ChatResponse is a provider's reply to a ChatRequest: either assistant
// text, a tool-call request, or both usage accounting.
type ChatResponse struct {
	Message Message
	Usage   Usage
}

// GenerationParams carries optional per-request sampling overrides. A nil
// *GenerationParams (the common case) means "use the provider's configured
// defaults".
type GenerationParams struct {
	Temperature *float64
	TopP        *float64
	TopK        *int
	MaxTokens   *int
}

// StreamChunk is one element of a Provider's stream: either a text delta,
// or — on the final frame — the accumulated Usage for the turn.
type StreamChunk struct {
	Text  string
	Usage *Usage // set only on the terminal frame
	Err   error
}

// Provider is the uniform contract every LLM backend implements: chat,
// stream, and structured operations over the backend-independent Message
// sum type. Backends translate to/from their own wire format internally;
// callers never see backend-specific shapes.
type Provider interface {
	Name() string

	// Chat performs one synchronous turn and returns the resulting Message
	// (which may carry a ToolCallContent request) plus usage.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// Stream returns a lazy, finite sequence of text chunks; it carries
	// text only. When the model answers with a tool call, the backend does
	// not re-issue the turn as Chat: the sequence ends with a chunk whose
	// Err is set, and any text yielded before it is partial.
	// The returned function must be driven to exhaustion or abandoned by
	// cancelling ctx; abandoning it must close the underlying transport.
	Stream(ctx context.Context, req ChatRequest) (func(yield func(StreamChunk) bool), error)

	// Structured requests a value conforming to schema, forced via
	// whichever strategy the backend implements (JSON-mode with schema
	// injection, or a forced single tool/function call). The returned
	// string is the raw JSON payload; callers unmarshal into targetType.
	Structured(ctx context.Context, req ChatRequest, schema ToolProperty) (payload string, usage Usage, err error)
}

// EmbeddingProvider batch-embeds text into dense vectors for RAG ingest
// and query.
type EmbeddingProvider interface {
	Name() string
	Dimensions() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
