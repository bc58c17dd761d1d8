package gemini

import (
	"encoding/json"

	"github.com/archway-run/archway"
)

// buildBody translates a ChatRequest into Gemini's contents/systemInstruction
// shape. A prior assistant tool call becomes a "model" content with
// functionCall parts; its result becomes the next "user" content with a
// functionResponse part, mirroring how Gemini itself represents the turn.
func buildBody(req archway.ChatRequest, schema *archway.ToolProperty, forceFunctionCall string) geminiRequest {
	var contents []geminiContent
	for _, m := range req.Messages {
		switch content := m.Content.(type) {
		case archway.ToolCallContent:
			var parts []geminiPart
			for _, c := range content.Request.Calls {
				var args map[string]any
				_ = json.Unmarshal([]byte(c.Function.ArgumentsJSON), &args)
				parts = append(parts, geminiPart{FunctionCall: &geminiFuncCall{Name: c.Function.Name, Args: args}})
			}
			contents = append(contents, geminiContent{Role: "model", Parts: parts})
		case archway.ToolResultContent:
			var resp map[string]any
			if err := json.Unmarshal([]byte(content.Result.Content), &resp); err != nil {
				resp = map[string]any{"result": content.Result.Content}
			}
			contents = append(contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{FunctionResponse: &geminiFuncResponse{Name: content.Result.ToolName, Response: resp}}},
			})
		default:
			contents = append(contents, geminiContent{Role: mapRole(m.Role), Parts: buildParts(m)})
		}
	}

	body := geminiRequest{Contents: contents}
	if req.Instructions != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.Instructions}}}
	}
	if len(req.Tools) > 0 {
		body.Tools = []geminiTool{{FunctionDeclarations: buildFunctionDecls(req.Tools)}}
	}
	if forceFunctionCall != "" {
		body.ToolConfig = &geminiToolConfig{FunctionCallingConfig: geminiFuncCallingConfig{
			Mode:                 "ANY",
			AllowedFunctionNames: []string{forceFunctionCall},
		}}
	}

	cfg := &generationConfig{}
	var hasCfg bool
	if req.Params != nil {
		if req.Params.Temperature != nil {
			cfg.Temperature = req.Params.Temperature
			hasCfg = true
		}
		if req.Params.TopP != nil {
			cfg.TopP = req.Params.TopP
			hasCfg = true
		}
		if req.Params.TopK != nil {
			cfg.TopK = req.Params.TopK
			hasCfg = true
		}
		if req.Params.MaxTokens != nil {
			cfg.MaxOutputTokens = req.Params.MaxTokens
			hasCfg = true
		}
	}
	if schema != nil {
		var schemaMap map[string]any
		_ = json.Unmarshal(schema.JSONSchemaBytes(), &schemaMap)
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = schemaMap
		hasCfg = true
	}
	if hasCfg {
		body.GenerationConfig = cfg
	}
	return body
}

func buildParts(m archway.Message) []geminiPart {
	parts := []geminiPart{{Text: m.Text()}}
	for _, a := range m.Attachments {
		if a.Encoding == archway.AttachmentBase64 {
			parts = append(parts, geminiPart{InlineData: &geminiInlineData{MIMEType: a.MediaType, Data: a.Content}})
		}
	}
	return parts
}

func buildFunctionDecls(tools []archway.ToolDefinition) []geminiFuncDecl {
	out := make([]geminiFuncDecl, 0, len(tools))
	for _, t := range tools {
		var params map[string]any
		_ = json.Unmarshal(t.Parameters, &params)
		out = append(out, geminiFuncDecl{Name: t.Name, Description: t.Description, Parameters: params})
	}
	return out
}

func mapRole(r archway.Role) string {
	if r == archway.RoleAssistant {
		return "model"
	}
	return "user"
}
