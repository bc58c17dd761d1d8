package ollama

import (
	"encoding/json"

	"github.com/archway-run/archway"
)

func buildBody(model string, req archway.ChatRequest, jsonMode bool, stream bool) chatRequest {
	var msgs []chatMessage
	if req.Instructions != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.Instructions})
	}

	for _, m := range req.Messages {
		switch content := m.Content.(type) {
		case archway.ToolCallContent:
			var calls []*toolCall
			for _, c := range content.Request.Calls {
				var args map[string]any
				_ = json.Unmarshal([]byte(c.Function.ArgumentsJSON), &args)
				calls = append(calls, &toolCall{Function: &functionCall{Name: c.Function.Name, Arguments: args}})
			}
			msgs = append(msgs, chatMessage{Role: "assistant", ToolCalls: calls})
		case archway.ToolResultContent:
			msgs = append(msgs, chatMessage{Role: "tool", Content: content.Result.Content, ToolName: content.Result.ToolName})
		default:
			msgs = append(msgs, chatMessage{Role: string(m.Role), Content: m.Text()})
		}
	}

	body := chatRequest{Model: model, Messages: msgs, Stream: stream}
	if len(req.Tools) > 0 {
		body.Tools = buildTools(req.Tools)
	}
	if jsonMode {
		body.Format = "json"
	}

	opts := map[string]any{}
	if req.Params != nil {
		if req.Params.Temperature != nil {
			opts["temperature"] = *req.Params.Temperature
		}
		if req.Params.TopP != nil {
			opts["top_p"] = *req.Params.TopP
		}
		if req.Params.TopK != nil {
			opts["top_k"] = *req.Params.TopK
		}
		if req.Params.MaxTokens != nil {
			opts["num_predict"] = *req.Params.MaxTokens
		}
	}
	if len(opts) > 0 {
		body.Options = opts
	}
	return body
}

func buildTools(tools []archway.ToolDefinition) []apiTool {
	out := make([]apiTool, 0, len(tools))
	for _, t := range tools {
		var params map[string]any
		_ = json.Unmarshal(t.Parameters, &params)
		out = append(out, apiTool{Type: "function", Function: &functionDef{Name: t.Name, Description: t.Description, Parameters: params}})
	}
	return out
}
