package archway

import (
	"context"
	"testing"
	"time"
)

type rlStubResult struct {
	resp ChatResponse
	err  error
}

type rlStubProvider struct {
	results []rlStubResult
	calls   int
}

func (s *rlStubProvider) Name() string { return "stub" }

func (s *rlStubProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	r := s.results[s.calls]
	s.calls++
	return r.resp, r.err
}

func (s *rlStubProvider) Stream(ctx context.Context, req ChatRequest) (func(yield func(StreamChunk) bool), error) {
	r := s.results[s.calls]
	s.calls++
	return func(yield func(StreamChunk) bool) {
		if !yield(StreamChunk{Text: r.resp.Message.Text()}) {
			return
		}
		yield(StreamChunk{Usage: &r.resp.Usage})
	}, r.err
}

func (s *rlStubProvider) Structured(ctx context.Context, req ChatRequest, schema ToolProperty) (string, Usage, error) {
	r := s.results[s.calls]
	s.calls++
	return r.resp.Message.Text(), r.resp.Usage, r.err
}

func TestWithRateLimit_RPM_AllowsWithinLimit(t *testing.T) {
	stub := &rlStubProvider{results: []rlStubResult{
		{resp: ChatResponse{Message: AssistantMessage("a")}},
		{resp: ChatResponse{Message: AssistantMessage("b")}},
	}}
	p := WithRateLimit(stub, RPM(60))

	resp, err := p.Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Message.Text() != "a" {
		t.Errorf("got %q, want %q", resp.Message.Text(), "a")
	}
}

func TestWithRateLimit_RPM_BlocksWhenExceeded(t *testing.T) {
	stub := &rlStubProvider{results: []rlStubResult{
		{resp: ChatResponse{Message: AssistantMessage("a")}},
		{resp: ChatResponse{Message: AssistantMessage("b")}},
	}}
	p := WithRateLimit(stub, RPM(1))

	_, err := p.Chat(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.Chat(ctx, ChatRequest{})
	if err == nil {
		t.Fatal("expected context deadline exceeded, got nil")
	}
}

func TestWithRateLimit_Name(t *testing.T) {
	stub := &rlStubProvider{}
	p := WithRateLimit(stub, RPM(10))
	if p.Name() != "stub" {
		t.Errorf("Name() = %q, want %q", p.Name(), "stub")
	}
}

func TestWithRateLimit_TPM_AllowsWithinLimit(t *testing.T) {
	stub := &rlStubProvider{results: []rlStubResult{
		{resp: ChatResponse{Message: AssistantMessage("a"), Usage: Usage{PromptTokens: 100, CompletionTokens: 50}}},
		{resp: ChatResponse{Message: AssistantMessage("b"), Usage: Usage{PromptTokens: 100, CompletionTokens: 50}}},
	}}
	p := WithRateLimit(stub, TPM(1000))

	if _, err := p.Chat(context.Background(), ChatRequest{}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Chat(context.Background(), ChatRequest{}); err != nil {
		t.Fatal(err)
	}
	if stub.calls != 2 {
		t.Errorf("got %d calls, want 2", stub.calls)
	}
}

func TestWithRateLimit_TPM_BlocksWhenExceeded(t *testing.T) {
	stub := &rlStubProvider{results: []rlStubResult{
		{resp: ChatResponse{Message: AssistantMessage("a"), Usage: Usage{PromptTokens: 500, CompletionTokens: 500}}},
		{resp: ChatResponse{Message: AssistantMessage("b"), Usage: Usage{PromptTokens: 100, CompletionTokens: 100}}},
	}}
	p := WithRateLimit(stub, TPM(1000))

	if _, err := p.Chat(context.Background(), ChatRequest{}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := p.Chat(ctx, ChatRequest{})
	if err == nil {
		t.Fatal("expected context deadline exceeded, got nil")
	}
}

func TestWithRateLimit_RPMAndTPM(t *testing.T) {
	stub := &rlStubProvider{results: []rlStubResult{
		{resp: ChatResponse{Message: AssistantMessage("a"), Usage: Usage{PromptTokens: 10, CompletionTokens: 10}}},
		{resp: ChatResponse{Message: AssistantMessage("b"), Usage: Usage{PromptTokens: 10, CompletionTokens: 10}}},
	}}
	p := WithRateLimit(stub, RPM(100), TPM(20))

	if _, err := p.Chat(context.Background(), ChatRequest{}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := p.Chat(ctx, ChatRequest{})
	if err == nil {
		t.Fatal("expected timeout due to TPM limit")
	}
}

func TestWithRateLimit_Stream(t *testing.T) {
	stub := &rlStubProvider{results: []rlStubResult{
		{resp: ChatResponse{Message: AssistantMessage("hello"), Usage: Usage{PromptTokens: 30, CompletionTokens: 20}}},
	}}
	p := WithRateLimit(stub, RPM(60), TPM(1000))

	seq, err := p.Stream(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatal(err)
	}
	var got string
	for chunk := range seq {
		got += chunk.Text
	}
	if got != "hello" {
		t.Errorf("streamed %q, want %q", got, "hello")
	}
}
