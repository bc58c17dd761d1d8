package archway

import (
	"context"
	"testing"
)

type rerankStubProvider struct {
	response string
	err      error
}

func (s rerankStubProvider) Name() string { return "rerank-stub" }

func (s rerankStubProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if s.err != nil {
		return ChatResponse{}, s.err
	}
	return ChatResponse{Message: AssistantMessage(s.response)}, nil
}

func (s rerankStubProvider) Stream(ctx context.Context, req ChatRequest) (func(yield func(StreamChunk) bool), error) {
	return nil, nil
}

func (s rerankStubProvider) Structured(ctx context.Context, req ChatRequest, schema ToolProperty) (string, Usage, error) {
	return "", Usage{}, nil
}

func TestLLMRerankProcessor_ReordersByScore(t *testing.T) {
	docs := []Document{
		{ID: "a", Content: "irrelevant"},
		{ID: "b", Content: "highly relevant"},
		{ID: "c", Content: "somewhat relevant"},
	}
	p := LLMRerankProcessor{Provider: rerankStubProvider{
		response: `[{"index":0,"score":10},{"index":1,"score":90},{"index":2,"score":50}]`,
	}}

	ranked, err := p.Process(context.Background(), "query", docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("got %d docs, want 3", len(ranked))
	}
	if ranked[0].ID != "b" || ranked[1].ID != "c" || ranked[2].ID != "a" {
		t.Errorf("unexpected order: %v, %v, %v", ranked[0].ID, ranked[1].ID, ranked[2].ID)
	}
}

func TestLLMRerankProcessor_EmptyInput(t *testing.T) {
	p := LLMRerankProcessor{Provider: rerankStubProvider{}}
	ranked, err := p.Process(context.Background(), "query", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranked) != 0 {
		t.Errorf("got %d docs, want 0", len(ranked))
	}
}

func TestLLMRerankProcessor_DegradesOnProviderError(t *testing.T) {
	docs := []Document{{ID: "a", Content: "x"}, {ID: "b", Content: "y"}}
	p := LLMRerankProcessor{Provider: rerankStubProvider{err: errBoom}}

	ranked, err := p.Process(context.Background(), "query", docs)
	if err != nil {
		t.Fatalf("expected graceful degradation, got error: %v", err)
	}
	if ranked[0].ID != "a" || ranked[1].ID != "b" {
		t.Error("expected original order preserved on provider error")
	}
}

func TestLLMRerankProcessor_DegradesOnUnparsableResponse(t *testing.T) {
	docs := []Document{{ID: "a", Content: "x"}, {ID: "b", Content: "y"}}
	p := LLMRerankProcessor{Provider: rerankStubProvider{response: "not json"}}

	ranked, err := p.Process(context.Background(), "query", docs)
	if err != nil {
		t.Fatalf("expected graceful degradation, got error: %v", err)
	}
	if ranked[0].ID != "a" || ranked[1].ID != "b" {
		t.Error("expected original order preserved on unparsable response")
	}
}

var errBoom = &ProviderError{Provider: "rerank-stub", Message: "boom"}
