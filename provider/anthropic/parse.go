package anthropic

import (
	"encoding/json"

	"github.com/archway-run/archway"
	"github.com/google/uuid"
)

func parseResponse(resp apiResponse) archway.ChatResponse {
	usage := archway.Usage{
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}

	var calls []archway.ToolCall
	var text string
	for _, c := range resp.Content {
		switch c.Type {
		case "text":
			text += c.Text
		case "tool_use":
			args, _ := json.Marshal(c.Input)
			calls = append(calls, archway.ToolCall{
				CallID: c.ID,
				Type:   "function",
				Function: archway.ToolCallFunction{
					Name:          c.Name,
					ArgumentsJSON: string(args),
				},
			})
		}
	}

	if len(calls) > 0 {
		return archway.ChatResponse{
			Message: archway.AssistantToolCallMessage(archway.ToolCallRequest{MessageID: uuid.NewString(), Calls: calls}),
			Usage:   usage,
		}
	}
	return archway.ChatResponse{Message: archway.AssistantMessage(text), Usage: usage}
}

// parseStructuredPayload extracts the single tool_use block's input as raw
// JSON, for the forced-tool-call Structured strategy. Returns an error if
// the model did not call the required tool.
func parseStructuredPayload(resp apiResponse, toolName string) (string, error) {
	for _, c := range resp.Content {
		if c.Type == "tool_use" && c.Name == toolName {
			raw, err := json.Marshal(c.Input)
			if err != nil {
				return "", err
			}
			return string(raw), nil
		}
	}
	return "", errToolNotCalled
}
