package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/archway-run/archway"
	"github.com/archway-run/archway/httpclient"
)

// EmbeddingProvider implements archway.EmbeddingProvider against Gemini's
// embedContent endpoint, one request per input text (the API has no
// batch-embed call on this path).
type EmbeddingProvider struct {
	apiKey     string
	model      string
	baseURL    string
	dimensions int
	client     *http.Client
}

// NewEmbedding creates a Gemini EmbeddingProvider for model, which produces
// vectors of the given dimensions.
func NewEmbedding(apiKey, model string, dimensions int) *EmbeddingProvider {
	return &EmbeddingProvider{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		dimensions: dimensions,
		client:     httpclient.Shared(),
	}
}

func (e *EmbeddingProvider) Name() string    { return "gemini" }
func (e *EmbeddingProvider) Dimensions() int { return e.dimensions }

func (e *EmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		body := embedRequest{
			Model:   fmt.Sprintf("models/%s", e.model),
			Content: geminiContent{Parts: []geminiPart{{Text: text}}},
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &archway.EmbeddingError{Provider: "gemini", Message: "marshal request", Cause: err}
		}
		url := fmt.Sprintf("%s/models/%s:embedContent", e.baseURL, e.model)
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, &archway.EmbeddingError{Provider: "gemini", Message: "create request", Cause: err}
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", e.apiKey)

		resp, err := e.client.Do(httpReq)
		if err != nil {
			return nil, &archway.EmbeddingError{Provider: "gemini", Message: "request failed", Cause: err}
		}
		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, &archway.EmbeddingError{Provider: "gemini", Message: fmt.Sprintf("non-200 response (%d): %s", resp.StatusCode, respBody)}
		}
		var parsed embedResponse
		err = json.NewDecoder(resp.Body).Decode(&parsed)
		resp.Body.Close()
		if err != nil {
			return nil, &archway.EmbeddingError{Provider: "gemini", Message: "decode response", Cause: err}
		}
		out = append(out, parsed.Embedding.Values)
	}
	return out, nil
}

var _ archway.EmbeddingProvider = (*EmbeddingProvider)(nil)
