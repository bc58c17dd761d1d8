// Package historyfile is a JSON-Lines-backed archway.ChatHistory: each line
// is a serialized Message with keys role, content, usage?, attachments, meta.
// Reads ignore blank lines; writes atomically truncate and rewrite the whole
// file on every mutation — acceptable for small histories, not for large
// ones.
package historyfile

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"github.com/archway-run/archway"
)

// wireMessage is the on-disk JSON-Lines shape for one Message.
type wireMessage struct {
	Role        archway.Role         `json:"role"`
	Content     wireContent          `json:"content"`
	Usage       *archway.Usage       `json:"usage,omitempty"`
	Attachments []archway.Attachment `json:"attachments"`
	Meta        map[string]string    `json:"meta"`
}

type wireContent struct {
	Kind       string                   `json:"kind,omitempty"` // "text" | "tool_call" | "tool_result"
	Text       string                   `json:"text,omitempty"`
	ToolCall   *archway.ToolCallRequest `json:"tool_call,omitempty"`
	ToolResult *archway.ToolCallResult  `json:"tool_result,omitempty"`
}

func toWire(m archway.Message) wireMessage {
	w := wireMessage{Role: m.Role, Attachments: m.Attachments, Meta: m.Metadata, Usage: m.Usage}
	switch c := m.Content.(type) {
	case archway.TextContent:
		w.Content = wireContent{Kind: "text", Text: c.Text}
	case archway.ToolCallContent:
		w.Content = wireContent{Kind: "tool_call", ToolCall: &c.Request}
	case archway.ToolResultContent:
		w.Content = wireContent{Kind: "tool_result", ToolResult: &c.Result}
	}
	return w
}

func fromWire(w wireMessage) archway.Message {
	m := archway.Message{Role: w.Role, Usage: w.Usage, Attachments: w.Attachments, Metadata: w.Meta}
	switch w.Content.Kind {
	case "tool_call":
		if w.Content.ToolCall != nil {
			m.Content = archway.ToolCallContent{Request: *w.Content.ToolCall}
		}
	case "tool_result":
		if w.Content.ToolResult != nil {
			m.Content = archway.ToolResultContent{Result: *w.Content.ToolResult}
		}
	default:
		m.Content = archway.TextContent{Text: w.Content.Text}
	}
	return m
}

// History is a ChatHistory whose state is durably mirrored to a JSON-Lines
// file. All mutations hold a mutex guarding the file handle, matching the
// spec's requirement that file-backed histories guard file operations.
type History struct {
	mu            sync.Mutex
	path          string
	contextWindow int
	messages      []archway.Message
}

// Open loads an existing history file (if any) and returns a History bound
// to path, bounded to contextWindow messages. A non-positive window means
// unbounded.
func Open(path string, contextWindow int) (*History, error) {
	h := &History{path: path, contextWindow: contextWindow}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return h, nil
	}
	if err != nil {
		return nil, &archway.ChatHistoryError{Message: "open", Cause: err}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue // reads ignore blank lines
		}
		var w wireMessage
		if err := json.Unmarshal(line, &w); err != nil {
			return nil, &archway.ChatHistoryError{Message: "parse line", Cause: err}
		}
		h.messages = append(h.messages, fromWire(w))
	}
	if err := scanner.Err(); err != nil {
		return nil, &archway.ChatHistoryError{Message: "scan", Cause: err}
	}
	return h, nil
}

// Add appends msg, evicts oldest entries beyond contextWindow, and
// rewrites the file from scratch.
func (h *History) Add(msg archway.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
	if h.contextWindow > 0 {
		for len(h.messages) > h.contextWindow {
			h.messages = h.messages[1:]
		}
	}
	return h.rewrite()
}

// Snapshot returns a defensive copy of the current message order.
func (h *History) Snapshot() []archway.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]archway.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// RemoveOldest drops the oldest message and rewrites the file.
func (h *History) RemoveOldest() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.messages) > 0 {
		h.messages = h.messages[1:]
	}
	return h.rewrite()
}

// FlushAll clears the history and truncates the file.
func (h *History) FlushAll() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
	return h.rewrite()
}

// Len returns the current message count.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// rewrite atomically truncates and rewrites the whole file: write to a
// temp file in the same directory, then rename over path, so a crash
// mid-write never leaves a half-written history behind.
func (h *History) rewrite() error {
	tmp := h.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return &archway.ChatHistoryError{Message: "create temp file", Cause: err}
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, m := range h.messages {
		if err := enc.Encode(toWire(m)); err != nil {
			f.Close()
			return &archway.ChatHistoryError{Message: "encode message", Cause: err}
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return &archway.ChatHistoryError{Message: "flush", Cause: err}
	}
	if err := f.Close(); err != nil {
		return &archway.ChatHistoryError{Message: "close temp file", Cause: err}
	}
	if err := os.Rename(tmp, h.path); err != nil {
		return &archway.ChatHistoryError{Message: "rename temp file", Cause: err}
	}
	return nil
}

var _ archway.ChatHistory = (*History)(nil)
