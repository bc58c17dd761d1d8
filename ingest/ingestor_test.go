package ingest

import (
	"context"
	"testing"

	"github.com/archway-run/archway"
)

type fakeStore struct {
	docs []archway.Document
}

func (f *fakeStore) AddDocuments(ctx context.Context, docs []archway.Document) error {
	f.docs = append(f.docs, docs...)
	return nil
}

func (f *fakeStore) SimilaritySearch(ctx context.Context, query []float32, topK int) ([]archway.Document, error) {
	return nil, nil
}

type fakeEmbedding struct{}

func (fakeEmbedding) Name() string       { return "fake" }
func (fakeEmbedding) Dimensions() int    { return 3 }
func (fakeEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func TestIngestText(t *testing.T) {
	store := &fakeStore{}
	ing := NewIngestor(store, fakeEmbedding{})

	result, err := ing.IngestText(context.Background(), "hello world, this is a short document.", "mem://note", "note")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ChunkCount != 1 {
		t.Errorf("ChunkCount = %d, want 1", result.ChunkCount)
	}
	if len(store.docs) != 1 {
		t.Fatalf("stored %d docs, want 1", len(store.docs))
	}
	if store.docs[0].Metadata["title"] != "note" {
		t.Errorf("title metadata = %q, want %q", store.docs[0].Metadata["title"], "note")
	}
	if len(store.docs[0].Embedding) != 3 {
		t.Errorf("embedding dims = %d, want 3", len(store.docs[0].Embedding))
	}
}

func TestIngestFile_CSV(t *testing.T) {
	store := &fakeStore{}
	ing := NewIngestor(store, fakeEmbedding{})

	content := []byte("Name,Age\nJohn,30\nJane,25\n")
	result, err := ing.IngestFile(context.Background(), content, "people.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ChunkCount == 0 {
		t.Error("expected at least one chunk")
	}
}

func TestIngestFile_SizeLimit(t *testing.T) {
	store := &fakeStore{}
	ing := NewIngestor(store, fakeEmbedding{}, WithMaxContentSize(10))

	_, err := ing.IngestFile(context.Background(), []byte("this content is definitely longer than ten bytes"), "big.txt")
	if err == nil {
		t.Fatal("expected error for oversized content")
	}
}

func TestIngestText_OnSuccessHook(t *testing.T) {
	store := &fakeStore{}
	var got IngestResult
	ing := NewIngestor(store, fakeEmbedding{}, WithOnSuccess(func(r IngestResult) { got = r }))

	if _, err := ing.IngestText(context.Background(), "hello there", "src", "title"); err != nil {
		t.Fatal(err)
	}
	if got.DocumentID == "" {
		t.Error("expected onSuccess hook to fire with a document ID")
	}
}
