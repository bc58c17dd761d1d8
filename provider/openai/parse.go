package openai

import (
	"encoding/json"

	"github.com/archway-run/archway"
	"github.com/google/uuid"
)

func parseResponse(resp chatResponse) archway.ChatResponse {
	var out archway.ChatResponse
	if resp.Usage != nil {
		out.Usage = archway.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	if len(resp.Choices) == 0 {
		out.Message = archway.AssistantMessage("")
		return out
	}

	msg := resp.Choices[0].Message
	if msg == nil {
		out.Message = archway.AssistantMessage("")
		return out
	}
	if len(msg.ToolCalls) > 0 {
		out.Message = archway.AssistantToolCallMessage(archway.ToolCallRequest{
			MessageID: uuid.NewString(),
			Calls:     parseToolCalls(msg.ToolCalls),
		})
		return out
	}
	out.Message = archway.AssistantMessage(msg.Content)
	return out
}

func parseToolCalls(calls []wireCall) []archway.ToolCall {
	out := make([]archway.ToolCall, 0, len(calls))
	for _, c := range calls {
		args := c.Function.Arguments
		if !json.Valid([]byte(args)) {
			args = "{}"
		}
		out = append(out, archway.ToolCall{
			CallID: c.ID,
			Type:   "function",
			Function: archway.ToolCallFunction{
				Name:          c.Function.Name,
				ArgumentsJSON: args,
			},
		})
	}
	return out
}
