package archway

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

const (
	extraContextOpenTag  = "<EXTRA-CONTEXT>"
	extraContextCloseTag = "</EXTRA-CONTEXT>"
)

// PostProcessor reorders, filters, or rescores a retrieved document list
// before it is injected into agent instructions. Implementations may call
// external APIs (an LLM reranker) synchronously.
type PostProcessor interface {
	Process(ctx context.Context, query string, docs []Document) ([]Document, error)
}

// PostProcessorFunc adapts a plain function to PostProcessor.
type PostProcessorFunc func(ctx context.Context, query string, docs []Document) ([]Document, error)

func (f PostProcessorFunc) Process(ctx context.Context, query string, docs []Document) ([]Document, error) {
	return f(ctx, query, docs)
}

// RAG composes an *LLMAgent with retrieval, expressed as Go embedding
// (composition) rather than inheritance — RAG satisfies Agent via the
// embedded *LLMAgent while adding retrieval-specific operations. RAG holds
// the agent functionally; tools never hold a reference back to the agent
// or the RAG that owns them.
type RAG struct {
	*LLMAgent

	embedding      EmbeddingProvider
	store          VectorStore
	postProcessors []PostProcessor
	topK           int
}

// NewRAG wraps agent with retrieval augmented by embedding and store.
func NewRAG(agent *LLMAgent, embedding EmbeddingProvider, store VectorStore) *RAG {
	return &RAG{LLMAgent: agent, embedding: embedding, store: store, topK: 5}
}

// SetTopK overrides the number of documents retrieved per query (default 5).
func (r *RAG) SetTopK(k int) { r.topK = k }

// AddPostProcessor appends a post-processing stage, run in registration
// order after dedup and before context injection.
func (r *RAG) AddPostProcessor(p PostProcessor) { r.postProcessors = append(r.postProcessors, p) }

// AddDocuments embeds docs (on a defensive copy) and ingests them into the
// vector store, which rejects any document with a null/empty embedding.
func (r *RAG) AddDocuments(ctx context.Context, docs []Document) error {
	correlation := NewID()
	r.publishRAG(ctx, correlation, EventRAGAddDocumentsStart, nil)

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := r.embedding.Embed(ctx, texts)
	if err != nil {
		werr := &EmbeddingError{Provider: r.embedding.Name(), Message: "embed documents", Cause: err}
		r.publishRAG(ctx, correlation, EventError, map[string]any{"error": werr.Error()})
		return werr
	}

	embedded := make([]Document, len(docs))
	for i, d := range docs {
		embedded[i] = d // defensive copy: struct value, Embedding slice below is freshly allocated
		if i < len(vectors) {
			embedded[i].Embedding = vectors[i]
		}
	}

	if err := r.store.AddDocuments(ctx, embedded); err != nil {
		r.publishRAG(ctx, correlation, EventError, map[string]any{"error": err.Error()})
		return err
	}
	r.publishRAG(ctx, correlation, EventRAGAddDocumentsStop, map[string]any{"count": len(docs)})
	return nil
}

// retrieveDocuments embeds question, searches the store, dedupes by MD5 of
// content (preserving first-seen order, dropping empty-content documents),
// then runs every registered post-processor in order.
func (r *RAG) retrieveDocuments(ctx context.Context, question string) ([]Document, error) {
	if strings.TrimSpace(question) == "" {
		return nil, &AgentError{Message: "query required"}
	}
	correlation := NewID()
	r.publishRAG(ctx, correlation, EventRAGRetrievalStart, nil)
	defer r.publishRAG(ctx, correlation, EventRAGRetrievalStop, nil)

	vectors, err := r.embedding.Embed(ctx, []string{question})
	if err != nil {
		return nil, &EmbeddingError{Provider: r.embedding.Name(), Message: "embed query", Cause: err}
	}
	queryEmbedding := vectors[0]

	start := time.Now()
	r.publishRAG(ctx, correlation, EventRAGVectorStoreSearching, map[string]any{"question": question})
	docs, err := r.store.SimilaritySearch(ctx, queryEmbedding, r.topK)
	if err != nil {
		return nil, err
	}
	r.publishRAG(ctx, correlation, EventRAGVectorStoreResult, map[string]any{
		"question":    question,
		"documents":   docs,
		"elapsed_ms":  float64(time.Since(start).Milliseconds()),
		"store_class": "MemoryVectorStore",
	})

	deduped := dedupeByContentMD5(docs)

	r.publishRAG(ctx, correlation, EventRAGPostProcessingStart, nil)
	for _, p := range r.postProcessors {
		deduped, err = p.Process(ctx, question, deduped)
		if err != nil {
			return nil, &PostProcessorError{Message: "post-process", Cause: err}
		}
	}
	r.publishRAG(ctx, correlation, EventRAGPostProcessingEnd, map[string]any{"count": len(deduped)})

	return deduped, nil
}

// dedupeByContentMD5 drops documents with empty content and collapses
// duplicate content (by MD5 hash), preserving first-seen order.
func dedupeByContentMD5(docs []Document) []Document {
	seen := make(map[[16]byte]bool, len(docs))
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if d.Content == "" {
			continue
		}
		sum := md5.Sum([]byte(d.Content))
		if seen[sum] {
			continue
		}
		seen[sum] = true
		out = append(out, d)
	}
	return out
}

// injectContext replaces any existing <EXTRA-CONTEXT> block in instructions
// with a freshly formatted block built from docs, guaranteeing idempotence:
// running this twice in a row with the same docs yields the same result.
func injectContext(instructions string, docs []Document) string {
	stripped := removeDelimitedContent(instructions, extraContextOpenTag, extraContextCloseTag)

	var b strings.Builder
	b.WriteString(extraContextOpenTag)
	b.WriteString("\n--- Relevant Information Start ---\n")
	for _, d := range docs {
		name := d.SourceName
		if name == "" {
			name = "N/A"
		}
		b.WriteString(name)
		b.WriteString("\n")
		b.WriteString(d.Content)
		b.WriteString("\n")
	}
	b.WriteString("--- Relevant Information End ---\n")
	b.WriteString(extraContextCloseTag)

	if stripped == "" {
		return b.String()
	}
	return stripped + "\n" + b.String()
}

// Answer retrieves documents relevant to message, injects them into the
// agent's instructions (replacing any prior block), and delegates to the
// embedded Agent Core's Chat.
func (r *RAG) Answer(ctx context.Context, message Message) (Message, error) {
	correlation := NewID()
	r.publishRAG(ctx, correlation, EventRAGAnswerStart, nil)

	docs, err := r.retrieveDocuments(ctx, message.Text())
	if err != nil {
		r.publishRAG(ctx, correlation, EventError, map[string]any{"error": err.Error()})
		return Message{}, err
	}
	r.SetInstructions(injectContext(r.Instructions(), docs))

	reply, err := r.LLMAgent.Chat(ctx, message)
	r.publishRAG(ctx, correlation, EventRAGAnswerStop, nil)
	return reply, err
}

// StreamAnswer is Answer's streaming counterpart.
func (r *RAG) StreamAnswer(ctx context.Context, message Message) (func(yield func(StreamChunk) bool), error) {
	docs, err := r.retrieveDocuments(ctx, message.Text())
	if err != nil {
		return nil, err
	}
	r.SetInstructions(injectContext(r.Instructions(), docs))
	return r.LLMAgent.Stream(ctx, message)
}

func (r *RAG) publishRAG(ctx context.Context, correlation, name string, payload map[string]any) {
	r.Bus().Publish(ctx, Event{Name: name, Source: r.Name(), CorrelationID: correlation, Payload: payload})
}

// ScoreFilterProcessor drops documents scoring below minScore.
type ScoreFilterProcessor struct {
	MinScore float32
}

func (p ScoreFilterProcessor) Process(ctx context.Context, query string, docs []Document) ([]Document, error) {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if d.Score >= p.MinScore {
			out = append(out, d)
		}
	}
	return out, nil
}

// hashHex is exposed for tests asserting on dedup keys without depending on
// crypto/md5 directly.
func hashHex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
