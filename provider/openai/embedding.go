package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/archway-run/archway"
	"github.com/archway-run/archway/httpclient"
)

// EmbeddingProvider implements archway.EmbeddingProvider against the
// OpenAI-compatible /embeddings endpoint.
type EmbeddingProvider struct {
	apiKey     string
	model      string
	baseURL    string
	dimensions int
	client     *http.Client
}

// NewEmbedding creates an embeddings client for model at baseURL (e.g.
// "https://api.openai.com/v1"). dimensions is advertised via Dimensions()
// for callers that need to pre-size vector storage; it is not sent to the
// API.
func NewEmbedding(apiKey, model, baseURL string, dimensions int) *EmbeddingProvider {
	return &EmbeddingProvider{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		dimensions: dimensions,
		client:     httpclient.Shared(),
	}
}

func (e *EmbeddingProvider) Name() string    { return "openai" }
func (e *EmbeddingProvider) Dimensions() int { return e.dimensions }

func (e *EmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(embeddingRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, &archway.EmbeddingError{Provider: "openai", Message: "marshal request", Cause: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, &archway.EmbeddingError{Provider: "openai", Message: "create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, &archway.EmbeddingError{Provider: "openai", Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := json.Marshal(map[string]any{"status": resp.StatusCode})
		return nil, &archway.EmbeddingError{Provider: "openai", Message: string(body)}
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &archway.EmbeddingError{Provider: "openai", Message: "decode response", Cause: err}
	}
	out := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

var _ archway.EmbeddingProvider = (*EmbeddingProvider)(nil)
