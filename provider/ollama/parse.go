package ollama

import (
	"encoding/json"

	"github.com/archway-run/archway"
	"github.com/google/uuid"
)

func parseResponse(resp chatResponse) archway.ChatResponse {
	usage := archway.Usage{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}
	if resp.Message == nil {
		return archway.ChatResponse{Message: archway.AssistantMessage(""), Usage: usage}
	}
	if len(resp.Message.ToolCalls) > 0 {
		var calls []archway.ToolCall
		for _, c := range resp.Message.ToolCalls {
			if c.Function == nil {
				continue
			}
			args, _ := json.Marshal(c.Function.Arguments)
			calls = append(calls, archway.ToolCall{
				CallID: uuid.NewString(),
				Type:   "function",
				Function: archway.ToolCallFunction{
					Name:          c.Function.Name,
					ArgumentsJSON: string(args),
				},
			})
		}
		return archway.ChatResponse{
			Message: archway.AssistantToolCallMessage(archway.ToolCallRequest{MessageID: uuid.NewString(), Calls: calls}),
			Usage:   usage,
		}
	}
	return archway.ChatResponse{Message: archway.AssistantMessage(resp.Message.Content), Usage: usage}
}
