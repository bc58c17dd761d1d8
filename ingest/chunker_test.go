package ingest

import (
	"strings"
	"testing"
)

func TestRecursiveChunker_ShortTextSingleChunk(t *testing.T) {
	rc := NewRecursiveChunker(WithMaxTokens(512))
	chunks := rc.Chunk("A short sentence.")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0] != "A short sentence." {
		t.Errorf("chunk = %q", chunks[0])
	}
}

func TestRecursiveChunker_Empty(t *testing.T) {
	rc := NewRecursiveChunker()
	if chunks := rc.Chunk("   "); chunks != nil {
		t.Errorf("expected nil chunks for blank input, got %v", chunks)
	}
}

func TestRecursiveChunker_SplitsLongText(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("This is sentence number ")
		b.WriteString(strings.Repeat("x", 5))
		b.WriteString(". ")
	}
	rc := NewRecursiveChunker(WithMaxTokens(20), WithOverlapTokens(2))
	chunks := rc.Chunk(b.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for long text, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len(c) > 20*4+2*4 {
			t.Errorf("chunk exceeds max+overlap bytes: %d bytes", len(c))
		}
	}
}

func TestRecursiveChunker_RespectsParagraphBoundaries(t *testing.T) {
	text := strings.Repeat("a", 100) + "\n\n" + strings.Repeat("b", 100)
	rc := NewRecursiveChunker(WithMaxTokens(30))
	chunks := rc.Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected paragraph split into multiple chunks, got %d", len(chunks))
	}
}

func TestFindSentenceBoundaries_SkipsAbbreviationsAndDecimals(t *testing.T) {
	text := "Dr. Smith paid $3.14 for coffee. He left."
	boundaries := findSentenceBoundaries(text)
	if len(boundaries) != 1 {
		t.Fatalf("got %d boundaries, want 1 (only after \"coffee.\"); boundaries=%v", len(boundaries), boundaries)
	}
}

func TestFindSentenceBoundaries_CJKPunctuation(t *testing.T) {
	text := "你好。再见！"
	boundaries := findSentenceBoundaries(text)
	if len(boundaries) != 2 {
		t.Fatalf("got %d boundaries, want 2", len(boundaries))
	}
}

func TestSplitOnWords_OversizedWord(t *testing.T) {
	word := strings.Repeat("x", 50)
	segments := splitOnWords(word, 10)
	if len(segments) < 5 {
		t.Fatalf("expected oversized word split into multiple segments, got %d", len(segments))
	}
	var rebuilt strings.Builder
	for _, s := range segments {
		rebuilt.WriteString(s)
	}
	if rebuilt.String() != word {
		t.Errorf("rebuilt word = %q, want %q", rebuilt.String(), word)
	}
}
