package gemini

import (
	"encoding/json"

	"github.com/archway-run/archway"
	"github.com/google/uuid"
)

func parseResponse(resp geminiResponse) archway.ChatResponse {
	usage := usageFrom(resp.UsageMetadata)
	if len(resp.Candidates) == 0 {
		return archway.ChatResponse{Message: archway.AssistantMessage(""), Usage: usage}
	}

	parts := resp.Candidates[0].Content.Parts
	var calls []archway.ToolCall
	var text string
	for _, p := range parts {
		if p.FunctionCall != nil {
			args, _ := json.Marshal(p.FunctionCall.Args)
			calls = append(calls, archway.ToolCall{
				CallID: uuid.NewString(),
				Type:   "function",
				Function: archway.ToolCallFunction{
					Name:          p.FunctionCall.Name,
					ArgumentsJSON: string(args),
				},
			})
			continue
		}
		text += p.Text
	}
	if len(calls) > 0 {
		return archway.ChatResponse{
			Message: archway.AssistantToolCallMessage(archway.ToolCallRequest{MessageID: uuid.NewString(), Calls: calls}),
			Usage:   usage,
		}
	}
	return archway.ChatResponse{Message: archway.AssistantMessage(text), Usage: usage}
}

func usageFrom(meta *geminiUsageMeta) archway.Usage {
	if meta == nil {
		return archway.Usage{}
	}
	return archway.Usage{
		PromptTokens:     meta.PromptTokenCount,
		CompletionTokens: meta.CandidatesTokenCount,
		TotalTokens:      meta.TotalTokenCount,
	}
}
