// Package anthropic implements archway.Provider for the Anthropic Messages
// API: no system role in the messages array (a top-level "system" field
// instead), tool_use/tool_result as typed content blocks rather than
// separate message roles, and an SSE event stream keyed by event type
// (message_start, content_block_delta, message_delta, message_stop) instead
// of OpenAI's uniform per-line chat-completion-chunk shape.
package anthropic

type apiRequest struct {
	Model       string      `json:"model"`
	Messages    []apiMessage `json:"messages"`
	MaxTokens   int         `json:"max_tokens"`
	Temperature *float64    `json:"temperature,omitempty"`
	TopP        *float64    `json:"top_p,omitempty"`
	System      string      `json:"system,omitempty"`
	Stream      bool        `json:"stream,omitempty"`
	Tools       []apiTool   `json:"tools,omitempty"`
	ToolChoice  any         `json:"tool_choice,omitempty"`
}

type apiMessage struct {
	Role    string       `json:"role"` // "user" or "assistant"
	Content []apiContent `json:"content"`
}

type apiContent struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty"`
}

type apiTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type apiResponse struct {
	Content    []apiContent `json:"content"`
	StopReason string       `json:"stop_reason"`
	Usage      apiUsage     `json:"usage"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type streamEvent struct {
	Type         string         `json:"type"`
	Index        int            `json:"index"`
	Delta        *apiDelta      `json:"delta,omitempty"`
	ContentBlock *apiContent    `json:"content_block,omitempty"`
	Usage        *apiUsage      `json:"usage,omitempty"`
	Message      *streamMessage `json:"message,omitempty"`
}

// streamMessage is the partial message object carried by message_start,
// whose nested usage.input_tokens is the only place prompt-token usage
// appears in the stream.
type streamMessage struct {
	Usage apiUsage `json:"usage"`
}

type apiDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}
