package openai

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/archway-run/archway"
)

func buildBody(model string, req archway.ChatRequest, schema *archway.ToolProperty, stream bool) chatRequest {
	var msgs []wireMessage
	if req.Instructions != "" {
		msgs = append(msgs, wireMessage{Role: "system", Content: req.Instructions})
	}

	for _, m := range req.Messages {
		switch content := m.Content.(type) {
		case archway.ToolCallContent:
			var calls []wireCall
			for _, c := range content.Request.Calls {
				calls = append(calls, wireCall{
					ID:   c.CallID,
					Type: "function",
					Function: functionCall{
						Name:      c.Function.Name,
						Arguments: c.Function.ArgumentsJSON,
					},
				})
			}
			msgs = append(msgs, wireMessage{Role: "assistant", ToolCalls: calls})
		case archway.ToolResultContent:
			msgs = append(msgs, wireMessage{
				Role:       "tool",
				Content:    content.Result.Content,
				ToolCallID: content.Result.CallID,
			})
		default:
			msgs = append(msgs, buildTextMessage(m))
		}
	}

	body := chatRequest{Model: model, Messages: msgs, Stream: stream}
	if len(req.Tools) > 0 {
		body.Tools = buildTools(req.Tools)
	}
	if schema != nil {
		body.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchema{
				Name:   schema.Name,
				Schema: schema.JSONSchemaBytes(),
				Strict: true,
			},
		}
	}
	if req.Params != nil {
		if req.Params.Temperature != nil {
			body.Temperature = req.Params.Temperature
		}
		if req.Params.TopP != nil {
			body.TopP = req.Params.TopP
		}
		if req.Params.MaxTokens != nil {
			body.MaxTokens = req.Params.MaxTokens
		}
	}
	return body
}

func buildTextMessage(m archway.Message) wireMessage {
	role := string(m.Role)
	if len(m.Attachments) == 0 {
		return wireMessage{Role: role, Content: m.Text()}
	}

	var blocks []contentBlock
	if text := m.Text(); text != "" {
		blocks = append(blocks, contentBlock{Type: "text", Text: text})
	}
	for _, att := range m.Attachments {
		url := att.Content
		if att.Encoding == archway.AttachmentBase64 {
			url = fmt.Sprintf("data:%s;base64,%s", att.MediaType, base64.StdEncoding.EncodeToString([]byte(att.Content)))
		}
		blocks = append(blocks, contentBlock{Type: "image_url", ImageURL: &imageURL{URL: url}})
	}
	return wireMessage{Role: role, Content: blocks}
}

func buildTools(tools []archway.ToolDefinition) []wireTool {
	out := make([]wireTool, 0, len(tools))
	for _, t := range tools {
		params := t.Parameters
		if len(params) == 0 {
			params = json.RawMessage(`{}`)
		}
		out = append(out, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out
}
