package anthropic

import (
	"encoding/json"

	"github.com/archway-run/archway"
)

const defaultMaxTokens = 4096

func buildRequest(model string, req archway.ChatRequest, stream bool) apiRequest {
	out := apiRequest{
		Model:     model,
		MaxTokens: defaultMaxTokens,
		Stream:    stream,
		System:    req.Instructions,
	}
	if req.Params != nil {
		out.Temperature = req.Params.Temperature
		out.TopP = req.Params.TopP
		if req.Params.MaxTokens != nil {
			out.MaxTokens = *req.Params.MaxTokens
		}
	}

	for _, m := range req.Messages {
		switch content := m.Content.(type) {
		case archway.ToolCallContent:
			var blocks []apiContent
			for _, c := range content.Request.Calls {
				var args map[string]any
				_ = json.Unmarshal([]byte(c.Function.ArgumentsJSON), &args)
				blocks = append(blocks, apiContent{Type: "tool_use", ID: c.CallID, Name: c.Function.Name, Input: args})
			}
			out.Messages = append(out.Messages, apiMessage{Role: "assistant", Content: blocks})
		case archway.ToolResultContent:
			text := content.Result.Content
			if text == "" {
				text = "(no output)"
			}
			out.Messages = append(out.Messages, apiMessage{
				Role:    "user",
				Content: []apiContent{{Type: "tool_result", ToolUseID: content.Result.CallID, Content: text}},
			})
		default:
			role := "user"
			if m.Role == archway.RoleAssistant {
				role = "assistant"
			}
			out.Messages = append(out.Messages, apiMessage{
				Role:    role,
				Content: []apiContent{{Type: "text", Text: m.Text()}},
			})
		}
	}

	for _, t := range req.Tools {
		var schema map[string]any
		_ = json.Unmarshal(t.Parameters, &schema)
		out.Tools = append(out.Tools, apiTool{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return out
}

// forceToolChoice requests the model call exactly one named tool — the
// "single forced tool call" structured-output strategy for backends with no
// native JSON-schema response mode.
func forceToolChoice(name string) any {
	return map[string]any{"type": "tool", "name": name}
}
