// Package archway is an agent framework mediating between application code
// and LLM providers: a unified agent surface, retrieval-augmented generation,
// declarative tool calling, and a graph-based workflow engine with
// interrupt/resume semantics.
package archway

import "time"

// Role identifies who produced a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleModel     Role = "model"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Content is the sum type carried by a Message: text, a tool-call request,
// a tool-call result, or nil (no content). Implementations are closed over
// this package; callers type-switch on the concrete type rather than relying
// on reflection or an "any" payload.
type Content interface {
	isContent()
}

// TextContent is plain assistant/user/system text.
type TextContent struct {
	Text string
}

func (TextContent) isContent() {}

// ToolCallContent carries a request from the model to invoke tools.
type ToolCallContent struct {
	Request ToolCallRequest
}

func (ToolCallContent) isContent() {}

// ToolResultContent carries the outcome of executing a tool call.
type ToolResultContent struct {
	Result ToolCallResult
}

func (ToolResultContent) isContent() {}

// AttachmentType classifies the kind of binary content an Attachment carries.
type AttachmentType string

const (
	AttachmentImage    AttachmentType = "IMAGE"
	AttachmentDocument AttachmentType = "DOCUMENT"
)

// AttachmentEncoding describes how Attachment.Content should be interpreted.
type AttachmentEncoding string

const (
	AttachmentBase64 AttachmentEncoding = "BASE64"
	AttachmentURL    AttachmentEncoding = "URL"
)

// Attachment is a binary or referenced piece of media attached to a Message.
type Attachment struct {
	Type      AttachmentType
	Encoding  AttachmentEncoding
	MediaType string
	Content   string
}

// Message is the immutable-in-spirit unit of conversation. Instances are
// built progressively while an agent turn is in flight; once handed to an
// Observer or appended to a ChatHistory, treat the value as frozen — copy
// before mutating.
type Message struct {
	Role        Role
	Content     Content
	Usage       *Usage
	Attachments []Attachment
	Metadata    map[string]string
}

// TextMessage builds a Message carrying plain text content.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Content: TextContent{Text: text}}
}

// UserMessage builds a USER-role text Message.
func UserMessage(text string) Message { return TextMessage(RoleUser, text) }

// SystemMessage builds a SYSTEM-role text Message.
func SystemMessage(text string) Message { return TextMessage(RoleSystem, text) }

// AssistantMessage builds an ASSISTANT-role text Message.
func AssistantMessage(text string) Message { return TextMessage(RoleAssistant, text) }

// AssistantToolCallMessage builds the assistant message that carries a
// tool-call request, appended to history before the calls are dispatched.
func AssistantToolCallMessage(req ToolCallRequest) Message {
	return Message{Role: RoleAssistant, Content: ToolCallContent{Request: req}}
}

// ToolResultMessage builds the TOOL-role message appended after a single
// call in req.Calls has been executed.
func ToolResultMessage(callID, toolName, content string) Message {
	return Message{
		Role: RoleTool,
		Content: ToolResultContent{Result: ToolCallResult{
			CallID:   callID,
			ToolName: toolName,
			Content:  content,
		}},
	}
}

// Text returns the message's text content, or "" if it carries no
// TextContent (a tool-call request/result or nil content).
func (m Message) Text() string {
	if tc, ok := m.Content.(TextContent); ok {
		return tc.Text
	}
	return ""
}

// ToolCallRequest is the model's request to invoke one or more tools in a
// single turn. Arguments are carried as JSON-encoded strings to preserve
// provider fidelity — the framework never assumes a canonical Go shape for
// arguments until a specific Tool unmarshals them.
type ToolCallRequest struct {
	MessageID string
	Calls     []ToolCall
}

// ToolCall is a single function invocation requested by the model.
type ToolCall struct {
	CallID   string
	Type     string // always "function"
	Function ToolCallFunction
}

// ToolCallFunction names the function and carries its JSON arguments.
type ToolCallFunction struct {
	Name          string
	ArgumentsJSON string
}

// ToolCallResult is the outcome of executing one ToolCall, appended to
// history as a TOOL-role Message.
type ToolCallResult struct {
	CallID   string
	ToolName string
	Content  string
}

// Usage tracks token accounting for a single provider call or an
// accumulation across a multi-turn agent loop.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Add accumulates u2 into u in place and returns u for chaining.
func (u *Usage) Add(u2 Usage) *Usage {
	u.PromptTokens += u2.PromptTokens
	u.CompletionTokens += u2.CompletionTokens
	u.TotalTokens += u2.TotalTokens
	return u
}

// Document is a unit of retrievable content for the RAG pipeline.
type Document struct {
	ID         string
	Content    string
	SourceType string
	SourceName string
	Metadata   map[string]string
	Embedding  []float32
	Score      float32
}

// WorkflowState is a single mutable document shared across a workflow run.
// Equality is structural — callers that need to compare snapshots should do
// so via reflect.DeepEqual or an equivalent structural comparator.
type WorkflowState map[string]any

// Clone returns a shallow copy of s; values themselves are not deep-copied.
func (s WorkflowState) Clone() WorkflowState {
	out := make(WorkflowState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge returns a new state containing s's entries overlaid with other's.
func (s WorkflowState) Merge(other WorkflowState) WorkflowState {
	out := s.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

func nowUnix() int64 { return time.Now().Unix() }
