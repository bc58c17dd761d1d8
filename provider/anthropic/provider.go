package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/archway-run/archway"
	"github.com/archway-run/archway/httpclient"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
)

var (
	errStreamToolCall = errors.New("anthropic: tool_use block received mid-stream, re-issue as Chat")
	errToolNotCalled  = errors.New("anthropic: model did not use required tool")
)

// Provider implements archway.Provider for Anthropic's Messages API.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	stream  *http.Client
}

// Option configures a Provider at construction.
type Option func(*Provider)

// WithBaseURL overrides the API root (for proxies or compatible gateways).
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// New creates an Anthropic chat Provider for model.
func New(apiKey, model string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  httpclient.Shared(),
		stream:  httpclient.SharedStreaming(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) Chat(ctx context.Context, req archway.ChatRequest) (archway.ChatResponse, error) {
	body := buildRequest(p.model, req, false)
	resp, err := p.send(ctx, p.client, body)
	if err != nil {
		return archway.ChatResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return archway.ChatResponse{}, p.httpErr(resp)
	}
	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return archway.ChatResponse{}, &archway.ProviderError{Provider: "anthropic", Message: "decode response", Cause: err}
	}
	return parseResponse(parsed), nil
}

func (p *Provider) Stream(ctx context.Context, req archway.ChatRequest) (func(yield func(archway.StreamChunk) bool), error) {
	body := buildRequest(p.model, req, true)
	resp, err := p.send(ctx, p.stream, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, p.httpErr(resp)
	}
	return func(yield func(archway.StreamChunk) bool) {
		decodeSSE(resp.Body, yield)
	}, nil
}

// Structured forces a single tool call named by schema.Name: Anthropic has
// no native JSON-schema response mode, so the schema is declared as the
// tool's input_schema and tool_choice pins the model to calling it.
func (p *Provider) Structured(ctx context.Context, req archway.ChatRequest, schema archway.ToolProperty) (string, archway.Usage, error) {
	body := buildRequest(p.model, req, false)
	var inputSchema map[string]any
	_ = json.Unmarshal(schema.JSONSchemaBytes(), &inputSchema)
	body.Tools = append(body.Tools, apiTool{Name: schema.Name, Description: schema.Description, InputSchema: inputSchema})
	body.ToolChoice = forceToolChoice(schema.Name)

	resp, err := p.send(ctx, p.client, body)
	if err != nil {
		return "", archway.Usage{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", archway.Usage{}, p.httpErr(resp)
	}
	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", archway.Usage{}, &archway.ProviderError{Provider: "anthropic", Message: "decode response", Cause: err}
	}
	payload, err := parseStructuredPayload(parsed, schema.Name)
	if err != nil {
		return "", archway.Usage{}, &archway.ProviderError{Provider: "anthropic", Message: err.Error()}
	}
	usage := archway.Usage{
		PromptTokens:     parsed.Usage.InputTokens,
		CompletionTokens: parsed.Usage.OutputTokens,
		TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
	}
	return payload, usage, nil
}

func (p *Provider) send(ctx context.Context, client *http.Client, body apiRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &archway.ProviderError{Provider: "anthropic", Message: "marshal request", Cause: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, &archway.ProviderError{Provider: "anthropic", Message: "create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, &archway.ProviderError{Provider: "anthropic", Message: "request failed", Cause: err}
	}
	return resp, nil
}

func (p *Provider) httpErr(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &archway.ProviderError{Provider: "anthropic", Message: "non-200 response", StatusCode: resp.StatusCode, Body: string(body)}
}

var _ archway.Provider = (*Provider)(nil)
