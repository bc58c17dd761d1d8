package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/archway-run/archway"
	"github.com/archway-run/archway/httpclient"
)

const defaultBaseURL = "http://localhost:11434"

var errStreamToolCall = errors.New("ollama: tool call received mid-stream, re-issue as Chat")

// Provider implements archway.Provider against a local or remote Ollama
// server's NDJSON /api/chat endpoint.
type Provider struct {
	model   string
	baseURL string
	client  *http.Client
	stream  *http.Client
}

// Option configures a Provider at construction.
type Option func(*Provider)

// WithBaseURL overrides the Ollama server URL (default http://localhost:11434).
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// New creates an Ollama chat Provider for model.
func New(model string, opts ...Option) *Provider {
	p := &Provider{
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

func (p *Provider) Name() string { return "ollama" }

func (p *Provider) Chat(ctx context.Context, req archway.ChatRequest) (archway.ChatResponse, error) {
	body := buildBody(p.model, req, false, false)
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
		return archway.ChatResponse{}, &archway.ProviderError{Provider: "ollama", Message: "decode response", Cause: err}
	}
	return parseResponse(parsed), nil
}

func (p *Provider) Stream(ctx context.Context, req archway.ChatRequest) (func(yield func(archway.StreamChunk) bool), error) {
	body := buildBody(p.model, req, false, true)
	resp, err := p.send(ctx, p.stream, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, p.httpErr(resp)
	}
	return func(yield func(archway.StreamChunk) bool) {
		decodeNDJSON(resp.Body, yield)
	}, nil
}

// Structured uses Ollama's format=json mode: the raw schema is not injected
// (Ollama's json format only guarantees syntactically valid JSON, not
// schema conformance) so the caller's instructions must describe the
// desired shape; the response content is returned as the raw payload.
func (p *Provider) Structured(ctx context.Context, req archway.ChatRequest, schema archway.ToolProperty) (string, archway.Usage, error) {
	body := buildBody(p.model, req, true, false)
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
		return "", archway.Usage{}, &archway.ProviderError{Provider: "ollama", Message: "decode response", Cause: err}
	}
	out := parseResponse(parsed)
	return out.Message.Text(), out.Usage, nil
}

func (p *Provider) send(ctx context.Context, client *http.Client, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &archway.ProviderError{Provider: "ollama", Message: "marshal request", Cause: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, &archway.ProviderError{Provider: "ollama", Message: "create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, &archway.ProviderError{Provider: "ollama", Message: "request failed", Cause: err}
	}
	return resp, nil
}

func (p *Provider) httpErr(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &archway.ProviderError{Provider: "ollama", Message: "non-200 response", StatusCode: resp.StatusCode, Body: string(body)}
}

// decodeNDJSON reads one JSON object per line (no SSE framing) until a
// frame with done=true, which also carries final token usage.
func decodeNDJSON(body io.ReadCloser, yield func(archway.StreamChunk) bool) {
	defer body.Close()
	reader := bufio.NewReader(body)
	var sawToolCall bool

	for {
		line, err := reader.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var chunk chatResponse
			if jsonErr := json.Unmarshal(line, &chunk); jsonErr == nil {
				if chunk.Message != nil {
					if len(chunk.Message.ToolCalls) > 0 {
						sawToolCall = true
					} else if chunk.Message.Content != "" {
						if !yield(archway.StreamChunk{Text: chunk.Message.Content}) {
							return
						}
					}
				}
				if chunk.Done {
					if sawToolCall {
						yield(archway.StreamChunk{Err: errStreamToolCall})
						return
					}
					usage := archway.Usage{
						PromptTokens:     chunk.PromptEvalCount,
						CompletionTokens: chunk.EvalCount,
						TotalTokens:      chunk.PromptEvalCount + chunk.EvalCount,
					}
					yield(archway.StreamChunk{Usage: &usage})
					return
				}
			}
		}
		if err != nil {
			if err != io.EOF {
				yield(archway.StreamChunk{Err: err})
			}
			return
		}
	}
}

var _ archway.Provider = (*Provider)(nil)
