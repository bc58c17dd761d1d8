package openai

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/archway-run/archway"
)

// decodeSSE reads an OpenAI-format SSE stream ("data: {...}\n\n", terminated
// by "data: [DONE]"), yielding one StreamChunk per text delta and a final
// chunk carrying accumulated Usage. It tolerates chunk lines split mid-JSON
// across TCP reads because bufio.Scanner buffers to the next newline.
func decodeSSE(body io.ReadCloser, yield func(archway.StreamChunk) bool) {
	defer body.Close()
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var finalUsage *archway.Usage
	var toolCallSeen bool

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk chatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Usage != nil {
			finalUsage = &archway.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta == nil {
			continue
		}
		if len(delta.ToolCalls) > 0 {
			// A tool call cannot be delivered as text; it is reported
			// after the loop as a terminal errStreamToolCall chunk.
			toolCallSeen = true
			continue
		}
		if delta.Content != "" {
			if !yield(archway.StreamChunk{Text: delta.Content}) {
				return
			}
		}
	}
	if toolCallSeen {
		yield(archway.StreamChunk{Err: errStreamToolCall})
		return
	}
	if err := scanner.Err(); err != nil {
		yield(archway.StreamChunk{Err: err})
		return
	}
	yield(archway.StreamChunk{Usage: finalUsage})
}
