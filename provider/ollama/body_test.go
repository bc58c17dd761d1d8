package ollama

import (
	"encoding/json"
	"testing"

	"github.com/archway-run/archway"
)

func TestBuildBody_SimpleUserMessage(t *testing.T) {
	req := archway.ChatRequest{
		Instructions: "Be helpful.",
		Messages:     []archway.Message{archway.UserMessage("hi")},
	}

	body := buildBody("llama3", req, false, false)

	if body.Model != "llama3" {
		t.Errorf("got model %q, want llama3", body.Model)
	}
	if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", body.Messages)
	}
}

func TestBuildBody_JSONModeSetsFormat(t *testing.T) {
	req := archway.ChatRequest{Messages: []archway.Message{archway.UserMessage("hi")}}

	body := buildBody("llama3", req, true, false)

	if body.Format != "json" {
		t.Errorf("got format %v, want json", body.Format)
	}
}

func TestBuildBody_ToolCallAndResultMessages(t *testing.T) {
	req := archway.ChatRequest{
		Messages: []archway.Message{
			archway.AssistantToolCallMessage(archway.ToolCallRequest{
				Calls: []archway.ToolCall{{
					CallID:   "call-1",
					Function: archway.ToolCallFunction{Name: "search", ArgumentsJSON: `{"q":"cats"}`},
				}},
			}),
			archway.ToolResultMessage("call-1", "search", "42 results"),
		},
	}

	body := buildBody("llama3", req, false, false)

	if len(body.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(body.Messages))
	}
	assistantMsg := body.Messages[0]
	if assistantMsg.Role != "assistant" || len(assistantMsg.ToolCalls) != 1 {
		t.Fatalf("unexpected assistant message: %+v", assistantMsg)
	}
	if assistantMsg.ToolCalls[0].Function.Name != "search" {
		t.Errorf("got name %q, want search", assistantMsg.ToolCalls[0].Function.Name)
	}
	toolMsg := body.Messages[1]
	if toolMsg.Role != "tool" || toolMsg.ToolName != "search" || toolMsg.Content != "42 results" {
		t.Errorf("unexpected tool message: %+v", toolMsg)
	}
}

func TestBuildBody_OptionsFromParams(t *testing.T) {
	temp := 0.7
	topK := 40
	req := archway.ChatRequest{
		Messages: []archway.Message{archway.UserMessage("hi")},
		Params:   &archway.GenerationParams{Temperature: &temp, TopK: &topK},
	}

	body := buildBody("llama3", req, false, false)

	if body.Options["temperature"] != 0.7 {
		t.Errorf("got temperature %v, want 0.7", body.Options["temperature"])
	}
	if body.Options["top_k"] != 40 {
		t.Errorf("got top_k %v, want 40", body.Options["top_k"])
	}
	if _, ok := body.Options["top_p"]; ok {
		t.Error("did not expect top_p to be set")
	}
}

func TestBuildBody_NoParamsOmitsOptions(t *testing.T) {
	req := archway.ChatRequest{Messages: []archway.Message{archway.UserMessage("hi")}}

	body := buildBody("llama3", req, false, false)

	if body.Options != nil {
		t.Errorf("got options %v, want nil", body.Options)
	}
}

func TestBuildTools(t *testing.T) {
	tools := []archway.ToolDefinition{
		{Name: "search", Description: "search the web", Parameters: json.RawMessage(`{"type":"object"}`)},
	}

	out := buildTools(tools)

	if len(out) != 1 || out[0].Function.Name != "search" {
		t.Fatalf("unexpected tools: %+v", out)
	}
}
