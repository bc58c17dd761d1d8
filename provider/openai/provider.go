package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/archway-run/archway"
	"github.com/archway-run/archway/httpclient"
)

var errStreamToolCall = errors.New("openai: tool call received mid-stream, re-issue as Chat")

// Provider implements archway.Provider for any OpenAI-compatible chat
// completions API: OpenAI itself, Groq, Together, Fireworks, Deepseek,
// Mistral, OpenRouter, vLLM, and LM Studio all speak this wire format —
// composition via a different BaseURL, not a separate client per vendor.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
	name    string
	client  *http.Client
	stream  *http.Client
}

// Option configures a Provider at construction.
type Option func(*Provider)

// WithName overrides the provider name reported by Name() (default "openai").
// Set this when pointing BaseURL at Groq, Deepseek, Mistral, etc. so
// observability and error messages attribute calls correctly.
func WithName(name string) Option {
	return func(p *Provider) { p.name = name }
}

// WithHTTPClient overrides the client used for non-streaming requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// New creates an OpenAI-compatible chat Provider. baseURL is the API root
// (e.g. "https://api.openai.com/v1", "https://api.deepseek.com/v1",
// "https://api.mistral.ai/v1"); "/chat/completions" is appended per request.
func New(apiKey, model, baseURL string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		name:    "openai",
		client:  httpclient.Shared(),
		stream:  httpclient.SharedStreaming(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Chat(ctx context.Context, req archway.ChatRequest) (archway.ChatResponse, error) {
	body := buildBody(p.model, req, nil, false)
	resp, err := p.send(ctx, p.client, body)
	if err != nil {
		return archway.ChatResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return archway.ChatResponse{}, p.httpErr(resp)
	}
	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return archway.ChatResponse{}, &archway.ProviderError{Provider: p.name, Message: "decode response", Cause: err}
	}
	return parseResponse(parsed), nil
}

func (p *Provider) Stream(ctx context.Context, req archway.ChatRequest) (func(yield func(archway.StreamChunk) bool), error) {
	body := buildBody(p.model, req, nil, true)
	body.StreamOptions = &streamOptions{IncludeUsage: true}

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

// Structured uses the OpenAI-compatible JSON-mode strategy: the schema is
// injected into response_format.json_schema and the model is constrained to
// emit matching JSON directly as its message content.
func (p *Provider) Structured(ctx context.Context, req archway.ChatRequest, schema archway.ToolProperty) (string, archway.Usage, error) {
	body := buildBody(p.model, req, &schema, false)
	resp, err := p.send(ctx, p.client, body)
	if err != nil {
		return "", archway.Usage{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", archway.Usage{}, p.httpErr(resp)
	}
	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", archway.Usage{}, &archway.ProviderError{Provider: p.name, Message: "decode response", Cause: err}
	}
	out := parseResponse(parsed)
	return out.Message.Text(), out.Usage, nil
}

func (p *Provider) send(ctx context.Context, client *http.Client, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &archway.ProviderError{Provider: p.name, Message: "marshal request", Cause: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, &archway.ProviderError{Provider: p.name, Message: "create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, &archway.ProviderError{Provider: p.name, Message: fmt.Sprintf("request: %v", err), Cause: err}
	}
	return resp, nil
}

func (p *Provider) httpErr(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &archway.ProviderError{
		Provider:   p.name,
		Message:    "non-200 response",
		StatusCode: resp.StatusCode,
		Body:       string(body),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

var _ archway.Provider = (*Provider)(nil)
