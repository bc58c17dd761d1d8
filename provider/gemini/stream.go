package gemini

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/archway-run/archway"
)

// decodeSSE reads Gemini's streamGenerateContent?alt=sse response: each
// "data: " line carries a full GenerateContentResponse object (not a text
// delta), so accumulated usage is simply the latest frame's usageMetadata.
func decodeSSE(body io.ReadCloser, yield func(archway.StreamChunk) bool) {
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var usage archway.Usage
	var sawToolCall bool

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		data, ok := bytes.CutPrefix(line, []byte("data: "))
		if !ok {
			continue
		}

		var chunk geminiResponse
		if err := json.Unmarshal(data, &chunk); err != nil {
			continue
		}
		if chunk.UsageMetadata != nil {
			usage = usageFrom(chunk.UsageMetadata)
		}
		if len(chunk.Candidates) == 0 {
			continue
		}
		for _, p := range chunk.Candidates[0].Content.Parts {
			if p.FunctionCall != nil {
				sawToolCall = true
				continue
			}
			if p.Text != "" {
				if !yield(archway.StreamChunk{Text: p.Text}) {
					return
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		yield(archway.StreamChunk{Err: err})
		return
	}
	if sawToolCall {
		yield(archway.StreamChunk{Err: errStreamToolCall})
		return
	}
	yield(archway.StreamChunk{Usage: &usage})
}
