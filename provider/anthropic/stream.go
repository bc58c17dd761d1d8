package anthropic

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/archway-run/archway"
)

// decodeSSE reads Anthropic's event-typed SSE stream, yielding one
// StreamChunk per text_delta and a final chunk carrying accumulated Usage.
// A tool_use content block arriving mid-stream ends the text-only contract;
// decodeSSE reports it via errStreamToolCall so the caller re-issues Chat.
func decodeSSE(body io.ReadCloser, yield func(archway.StreamChunk) bool) {
	defer body.Close()
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var usage archway.Usage
	var sawToolUse bool

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "content_block_start":
			if ev.ContentBlock != nil && ev.ContentBlock.Type == "tool_use" {
				sawToolUse = true
			}
		case "content_block_delta":
			if ev.Delta != nil && ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
				if !yield(archway.StreamChunk{Text: ev.Delta.Text}) {
					return
				}
			}
		case "message_delta":
			if ev.Usage != nil {
				usage.CompletionTokens = ev.Usage.OutputTokens
				usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
			}
		case "message_start":
			if ev.Message != nil {
				usage.PromptTokens = ev.Message.Usage.InputTokens
			}
		case "message_stop":
			// terminal frame handled after the loop
		}
	}
	if sawToolUse {
		yield(archway.StreamChunk{Err: errStreamToolCall})
		return
	}
	if err := scanner.Err(); err != nil {
		yield(archway.StreamChunk{Err: err})
		return
	}
	yield(archway.StreamChunk{Usage: &usage})
}
