package archway

import (
	"context"
	"strings"
	"testing"
)

type ragStubEmbedding struct {
	dims int
	err  error
}

func (e ragStubEmbedding) Name() string    { return "rag-stub-embedding" }
func (e ragStubEmbedding) Dimensions() int { return e.dims }

func (e ragStubEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func newRAGTestSetup(t *testing.T, chatResult rlStubResult) (*RAG, *rlStubProvider) {
	t.Helper()
	store := NewMemoryVectorStore()
	if err := store.AddDocuments(context.Background(), []Document{
		{ID: "d1", Content: "Go is a statically typed language.", SourceName: "doc1", Embedding: []float32{1, 0, 0}},
		{ID: "d2", Content: "Python is dynamically typed.", SourceName: "doc2", Embedding: []float32{0, 1, 0}},
	}); err != nil {
		t.Fatal(err)
	}

	stub := &rlStubProvider{results: []rlStubResult{chatResult}}
	agent := NewLLMAgent("rag-assistant", WithProvider(stub), WithInstructions("You are helpful."))
	rag := NewRAG(agent, ragStubEmbedding{dims: 3}, store)
	return rag, stub
}

func TestRAG_AddDocuments(t *testing.T) {
	store := NewMemoryVectorStore()
	agent := NewLLMAgent("a", WithProvider(&rlStubProvider{}))
	rag := NewRAG(agent, ragStubEmbedding{dims: 3}, store)

	err := rag.AddDocuments(context.Background(), []Document{
		{ID: "x", Content: "some content"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := store.SimilaritySearch(context.Background(), []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "x" {
		t.Errorf("expected document x to be stored, got %v", results)
	}
}

func TestRAG_AddDocuments_EmbeddingError(t *testing.T) {
	store := NewMemoryVectorStore()
	agent := NewLLMAgent("a", WithProvider(&rlStubProvider{}))
	rag := NewRAG(agent, ragStubEmbedding{err: &EmbeddingError{Provider: "x", Message: "boom"}}, store)

	err := rag.AddDocuments(context.Background(), []Document{{ID: "x", Content: "c"}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRAG_Answer_InjectsContextAndDelegates(t *testing.T) {
	rag, stub := newRAGTestSetup(t, rlStubResult{resp: ChatResponse{Message: AssistantMessage("go is great")}})

	reply, err := rag.Answer(context.Background(), UserMessage("what is Go?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text() != "go is great" {
		t.Errorf("got %q, want %q", reply.Text(), "go is great")
	}
	if stub.calls != 1 {
		t.Errorf("got %d provider calls, want 1", stub.calls)
	}
	instructions := rag.Instructions()
	if !containsAll(instructions, "<EXTRA-CONTEXT>", "statically typed", "</EXTRA-CONTEXT>") {
		t.Errorf("expected instructions to contain injected context, got %q", instructions)
	}
}

func TestRAG_Answer_EmptyQueryErrors(t *testing.T) {
	rag, _ := newRAGTestSetup(t, rlStubResult{resp: ChatResponse{Message: AssistantMessage("unused")}})
	_, err := rag.Answer(context.Background(), UserMessage(""))
	if err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestRAG_Answer_DedupesIdenticalContent(t *testing.T) {
	store := NewMemoryVectorStore()
	if err := store.AddDocuments(context.Background(), []Document{
		{ID: "a", Content: "same content", Embedding: []float32{1, 0, 0}},
		{ID: "b", Content: "same content", Embedding: []float32{1, 0, 0}},
	}); err != nil {
		t.Fatal(err)
	}
	stub := &rlStubProvider{results: []rlStubResult{{resp: ChatResponse{Message: AssistantMessage("ok")}}}}
	agent := NewLLMAgent("a", WithProvider(stub))
	rag := NewRAG(agent, ragStubEmbedding{dims: 3}, store)
	rag.SetTopK(10)

	docs, err := rag.retrieveDocuments(context.Background(), "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("got %d docs after dedup, want 1", len(docs))
	}
}

func TestRAG_Answer_RunsPostProcessors(t *testing.T) {
	store := NewMemoryVectorStore()
	if err := store.AddDocuments(context.Background(), []Document{
		{ID: "a", Content: "keep me", Embedding: []float32{1, 0, 0}},
		{ID: "b", Content: "drop me", Embedding: []float32{1, 0, 0}},
	}); err != nil {
		t.Fatal(err)
	}
	stub := &rlStubProvider{results: []rlStubResult{{resp: ChatResponse{Message: AssistantMessage("ok")}}}}
	agent := NewLLMAgent("a", WithProvider(stub))
	rag := NewRAG(agent, ragStubEmbedding{dims: 3}, store)
	rag.SetTopK(10)
	rag.AddPostProcessor(PostProcessorFunc(func(ctx context.Context, query string, docs []Document) ([]Document, error) {
		out := make([]Document, 0, len(docs))
		for _, d := range docs {
			if d.ID == "a" {
				out = append(out, d)
			}
		}
		return out, nil
	}))

	docs, err := rag.retrieveDocuments(context.Background(), "query")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != "a" {
		t.Errorf("expected only doc a to survive post-processing, got %v", docs)
	}
}

func TestRAG_Answer_PostProcessorErrorWraps(t *testing.T) {
	store := NewMemoryVectorStore()
	if err := store.AddDocuments(context.Background(), []Document{
		{ID: "a", Content: "x", Embedding: []float32{1, 0, 0}},
	}); err != nil {
		t.Fatal(err)
	}
	stub := &rlStubProvider{results: []rlStubResult{{resp: ChatResponse{Message: AssistantMessage("ok")}}}}
	agent := NewLLMAgent("a", WithProvider(stub))
	rag := NewRAG(agent, ragStubEmbedding{dims: 3}, store)
	rag.AddPostProcessor(PostProcessorFunc(func(ctx context.Context, query string, docs []Document) ([]Document, error) {
		return nil, &PostProcessorError{Message: "boom"}
	}))

	_, err := rag.retrieveDocuments(context.Background(), "query")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRAG_StreamAnswer(t *testing.T) {
	rag, _ := newRAGTestSetup(t, rlStubResult{resp: ChatResponse{Message: AssistantMessage("streamed")}})

	seq, err := rag.StreamAnswer(context.Background(), UserMessage("what is Go?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got string
	for chunk := range seq {
		got += chunk.Text
	}
	if got != "streamed" {
		t.Errorf("got %q, want %q", got, "streamed")
	}
}

func TestScoreFilterProcessor(t *testing.T) {
	p := ScoreFilterProcessor{MinScore: 0.5}
	docs := []Document{{ID: "a", Score: 0.9}, {ID: "b", Score: 0.3}}
	out, err := p.Process(context.Background(), "q", docs)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].ID != "a" {
		t.Errorf("got %v, want only doc a", out)
	}
}

func TestInjectContext_IsIdempotent(t *testing.T) {
	docs := []Document{{SourceName: "doc1", Content: "hello"}}
	once := injectContext("base instructions", docs)
	twice := injectContext(once, docs)
	if once != twice {
		t.Errorf("injectContext not idempotent:\nonce=%q\ntwice=%q", once, twice)
	}
}

func TestHashHex_Deterministic(t *testing.T) {
	if hashHex("abc") != hashHex("abc") {
		t.Error("expected deterministic hash")
	}
	if hashHex("abc") == hashHex("xyz") {
		t.Error("expected different hashes for different input")
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
