package anthropic

import (
	"testing"

	"github.com/archway-run/archway"
)

func TestParseResponse_Text(t *testing.T) {
	resp := apiResponse{
		Content: []apiContent{{Type: "text", Text: "hi there"}},
		Usage:   apiUsage{InputTokens: 10, OutputTokens: 5},
	}

	out := parseResponse(resp)

	if out.Message.Text() != "hi there" {
		t.Errorf("got text %q, want %q", out.Message.Text(), "hi there")
	}
	if out.Usage.PromptTokens != 10 || out.Usage.CompletionTokens != 5 || out.Usage.TotalTokens != 15 {
		t.Errorf("unexpected usage: %+v", out.Usage)
	}
}

func TestParseResponse_ConcatenatesMultipleTextBlocks(t *testing.T) {
	resp := apiResponse{Content: []apiContent{{Type: "text", Text: "Hello, "}, {Type: "text", Text: "world."}}}

	out := parseResponse(resp)

	if out.Message.Text() != "Hello, world." {
		t.Errorf("got text %q, want %q", out.Message.Text(), "Hello, world.")
	}
}

func TestParseResponse_ToolUse(t *testing.T) {
	resp := apiResponse{
		Content: []apiContent{{Type: "tool_use", ID: "call-1", Name: "search", Input: map[string]any{"q": "cats"}}},
	}

	out := parseResponse(resp)

	toolCall, ok := out.Message.Content.(archway.ToolCallContent)
	if !ok {
		t.Fatalf("expected ToolCallContent, got %T", out.Message.Content)
	}
	if len(toolCall.Request.Calls) != 1 || toolCall.Request.Calls[0].Function.Name != "search" {
		t.Fatalf("unexpected calls: %+v", toolCall.Request.Calls)
	}
}

func TestParseStructuredPayload_Found(t *testing.T) {
	resp := apiResponse{
		Content: []apiContent{{Type: "tool_use", Name: "answer", Input: map[string]any{"value": 42.0}}},
	}

	payload, err := parseStructuredPayload(resp, "answer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload != `{"value":42}` {
		t.Errorf("got payload %q", payload)
	}
}

func TestParseStructuredPayload_NotCalled(t *testing.T) {
	resp := apiResponse{Content: []apiContent{{Type: "text", Text: "no tool call here"}}}

	_, err := parseStructuredPayload(resp, "answer")
	if err == nil {
		t.Fatal("expected error when required tool was not called")
	}
}
