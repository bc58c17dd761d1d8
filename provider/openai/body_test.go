package openai

import (
	"encoding/json"
	"testing"

	"github.com/archway-run/archway"
)

func TestBuildBody_SimpleUserMessage(t *testing.T) {
	req := archway.ChatRequest{
		Instructions: "Be helpful.",
		Messages:     []archway.Message{archway.UserMessage("hello")},
	}

	body := buildBody("gpt-4o", req, nil, false)

	if body.Model != "gpt-4o" {
		t.Errorf("got model %q, want gpt-4o", body.Model)
	}
	if len(body.Messages) != 2 {
		t.Fatalf("got %d messages, want 2 (system + user)", len(body.Messages))
	}
	if body.Messages[0].Role != "system" || body.Messages[0].Content != "Be helpful." {
		t.Errorf("unexpected system message: %+v", body.Messages[0])
	}
	if body.Messages[1].Role != "user" || body.Messages[1].Content != "hello" {
		t.Errorf("unexpected user message: %+v", body.Messages[1])
	}
	if body.Stream {
		t.Error("expected Stream false")
	}
}

func TestBuildBody_NoInstructionsOmitsSystemMessage(t *testing.T) {
	req := archway.ChatRequest{Messages: []archway.Message{archway.UserMessage("hi")}}

	body := buildBody("gpt-4o", req, nil, false)

	if len(body.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(body.Messages))
	}
}

func TestBuildBody_ToolCallAndResultMessages(t *testing.T) {
	req := archway.ChatRequest{
		Messages: []archway.Message{
			archway.AssistantToolCallMessage(archway.ToolCallRequest{
				Calls: []archway.ToolCall{{
					CallID: "call-1",
					Type:   "function",
					Function: archway.ToolCallFunction{
						Name:          "search",
						ArgumentsJSON: `{"q":"cats"}`,
					},
				}},
			}),
			archway.ToolResultMessage("call-1", "search", "42 results"),
		},
	}

	body := buildBody("gpt-4o", req, nil, false)

	if len(body.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(body.Messages))
	}
	assistantMsg := body.Messages[0]
	if assistantMsg.Role != "assistant" || len(assistantMsg.ToolCalls) != 1 {
		t.Fatalf("unexpected assistant message: %+v", assistantMsg)
	}
	if assistantMsg.ToolCalls[0].Function.Name != "search" {
		t.Errorf("got tool name %q, want search", assistantMsg.ToolCalls[0].Function.Name)
	}
	toolMsg := body.Messages[1]
	if toolMsg.Role != "tool" || toolMsg.ToolCallID != "call-1" || toolMsg.Content != "42 results" {
		t.Errorf("unexpected tool message: %+v", toolMsg)
	}
}

func TestBuildBody_WithToolsAndSchema(t *testing.T) {
	req := archway.ChatRequest{
		Messages: []archway.Message{archway.UserMessage("hi")},
		Tools: []archway.ToolDefinition{
			{Name: "search", Description: "search the web", Parameters: json.RawMessage(`{"type":"object"}`)},
		},
	}
	schema := &archway.ToolProperty{Name: "answer", Type: archway.PropertyObject}

	body := buildBody("gpt-4o", req, schema, false)

	if len(body.Tools) != 1 || body.Tools[0].Function.Name != "search" {
		t.Fatalf("unexpected tools: %+v", body.Tools)
	}
	if body.ResponseFormat == nil || body.ResponseFormat.Type != "json_schema" {
		t.Fatalf("expected json_schema response format, got %+v", body.ResponseFormat)
	}
	if body.ResponseFormat.JSONSchema.Name != "answer" {
		t.Errorf("got schema name %q, want answer", body.ResponseFormat.JSONSchema.Name)
	}
	if !body.ResponseFormat.JSONSchema.Strict {
		t.Error("expected Strict true")
	}
}

func TestBuildBody_AppliesGenerationParams(t *testing.T) {
	temp := 0.5
	topP := 0.9
	maxTok := 100
	req := archway.ChatRequest{
		Messages: []archway.Message{archway.UserMessage("hi")},
		Params:   &archway.GenerationParams{Temperature: &temp, TopP: &topP, MaxTokens: &maxTok},
	}

	body := buildBody("gpt-4o", req, nil, true)

	if body.Temperature == nil || *body.Temperature != 0.5 {
		t.Errorf("got temperature %v, want 0.5", body.Temperature)
	}
	if body.TopP == nil || *body.TopP != 0.9 {
		t.Errorf("got topP %v, want 0.9", body.TopP)
	}
	if body.MaxTokens == nil || *body.MaxTokens != 100 {
		t.Errorf("got maxTokens %v, want 100", body.MaxTokens)
	}
	if !body.Stream {
		t.Error("expected Stream true")
	}
}

func TestBuildBody_ImageAttachmentBase64EncodesAsDataURL(t *testing.T) {
	msg := archway.UserMessage("describe this")
	msg.Attachments = []archway.Attachment{{
		Type:      archway.AttachmentImage,
		Encoding:  archway.AttachmentBase64,
		MediaType: "image/png",
		Content:   "rawbytes",
	}}
	req := archway.ChatRequest{Messages: []archway.Message{msg}}

	body := buildBody("gpt-4o", req, nil, false)

	blocks, ok := body.Messages[0].Content.([]contentBlock)
	if !ok {
		t.Fatalf("expected []contentBlock content, got %T", body.Messages[0].Content)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2 (text + image)", len(blocks))
	}
	if blocks[0].Type != "text" || blocks[0].Text != "describe this" {
		t.Errorf("unexpected text block: %+v", blocks[0])
	}
	if blocks[1].Type != "image_url" || blocks[1].ImageURL == nil {
		t.Fatalf("unexpected image block: %+v", blocks[1])
	}
	wantPrefix := "data:image/png;base64,"
	if len(blocks[1].ImageURL.URL) <= len(wantPrefix) || blocks[1].ImageURL.URL[:len(wantPrefix)] != wantPrefix {
		t.Errorf("got URL %q, want prefix %q", blocks[1].ImageURL.URL, wantPrefix)
	}
}
