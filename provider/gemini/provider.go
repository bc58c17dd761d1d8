package gemini

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

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

var errStreamToolCall = errors.New("gemini: function call received mid-stream, re-issue as Chat")

// Provider implements archway.Provider for Google's Gemini generateContent API.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	stream  *http.Client
}

// Option configures a Provider at construction.
type Option func(*Provider)

// WithBaseURL overrides the API root (for the Vertex AI gateway or a proxy).
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// New creates a Gemini chat Provider for model.
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

func (p *Provider) Name() string { return "gemini" }

func (p *Provider) Chat(ctx context.Context, req archway.ChatRequest) (archway.ChatResponse, error) {
	body := buildBody(req, nil, "")
	resp, err := p.send(ctx, p.client, fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, p.model), body)
	if err != nil {
		return archway.ChatResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return archway.ChatResponse{}, p.httpErr(resp)
	}
	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return archway.ChatResponse{}, &archway.ProviderError{Provider: "gemini", Message: "decode response", Cause: err}
	}
	return parseResponse(parsed), nil
}

func (p *Provider) Stream(ctx context.Context, req archway.ChatRequest) (func(yield func(archway.StreamChunk) bool), error) {
	body := buildBody(req, nil, "")
	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", p.baseURL, p.model)
	resp, err := p.send(ctx, p.stream, url, body)
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

// Structured uses Gemini's native responseMimeType/responseSchema mode,
// which constrains generation to conform to schema rather than relying on a
// forced function call.
func (p *Provider) Structured(ctx context.Context, req archway.ChatRequest, schema archway.ToolProperty) (string, archway.Usage, error) {
	body := buildBody(req, &schema, "")
	resp, err := p.send(ctx, p.client, fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, p.model), body)
	if err != nil {
		return "", archway.Usage{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", archway.Usage{}, p.httpErr(resp)
	}
	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", archway.Usage{}, &archway.ProviderError{Provider: "gemini", Message: "decode response", Cause: err}
	}
	out := parseResponse(parsed)
	return out.Message.Text(), out.Usage, nil
}

func (p *Provider) send(ctx context.Context, client *http.Client, url string, body geminiRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &archway.ProviderError{Provider: "gemini", Message: "marshal request", Cause: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &archway.ProviderError{Provider: "gemini", Message: "create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, &archway.ProviderError{Provider: "gemini", Message: "request failed", Cause: err}
	}
	return resp, nil
}

func (p *Provider) httpErr(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &archway.ProviderError{Provider: "gemini", Message: "non-200 response", StatusCode: resp.StatusCode, Body: string(body)}
}

var _ archway.Provider = (*Provider)(nil)
