package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/archway-run/archway"
)

// IngestResult holds the outcome of an ingest operation.
type IngestResult struct {
	DocumentID string
	ChunkCount int
}

// defaultMaxContentSize is the default maximum content size for extraction (50 MB).
const defaultMaxContentSize = 50 << 20

// Ingestor provides end-to-end ingestion: extract → chunk → embed → store.
type Ingestor struct {
	store          archway.VectorStore
	embedding      archway.EmbeddingProvider
	chunker        Chunker
	customChunker  bool // true when chunker was set via WithChunker
	extractors     map[ContentType]Extractor
	batchSize      int
	maxContentSize int

	mdChunker *MarkdownChunker

	tracer archway.Tracer
	logger *slog.Logger

	onSuccess func(IngestResult)
	onError   func(source string, err error)
}

// NewIngestor creates an Ingestor with sensible defaults.
func NewIngestor(store archway.VectorStore, emb archway.EmbeddingProvider, opts ...Option) *Ingestor {
	ing := &Ingestor{
		store:     store,
		embedding: emb,
		chunker:   NewRecursiveChunker(),
		extractors: map[ContentType]Extractor{
			TypePlainText: PlainTextExtractor{},
			TypeHTML:      HTMLExtractor{},
			TypeMarkdown:  MarkdownExtractor{},
			TypeCSV:       NewCSVExtractor(),
			TypeJSON:      NewJSONExtractor(),
			TypePDF:       NewPDFExtractor(),
		},
		batchSize:      64,
		maxContentSize: defaultMaxContentSize,
		mdChunker:      NewMarkdownChunker(),
	}
	for _, o := range opts {
		o(ing)
	}
	return ing
}

// IngestText ingests plain text content.
func (ing *Ingestor) IngestText(ctx context.Context, text, source, title string) (IngestResult, error) {
	if ing.tracer != nil {
		var span archway.Span
		ctx, span = ing.tracer.Start(ctx, "ingest.document",
			archway.StringAttr("source", source),
			archway.StringAttr("title", title),
			archway.StringAttr("content_type", string(TypePlainText)))
		defer func() { span.End() }()

		result, err := ing.ingestText(ctx, text, source, title)
		if err != nil {
			span.Error(err)
		} else {
			span.SetAttr(
				archway.StringAttr("doc_id", result.DocumentID),
				archway.IntAttr("chunk_count", result.ChunkCount))
		}
		return result, err
	}
	return ing.ingestText(ctx, text, source, title)
}

func (ing *Ingestor) ingestText(ctx context.Context, text, source, title string) (IngestResult, error) {
	docID := archway.NewID()

	if ing.logger != nil {
		ing.logger.Info("ingest started",
			"doc_id", docID, "source", source, "title", title,
			"content_type", string(TypePlainText), "content_bytes", len(text))
	}

	docs, err := ing.chunkAndEmbed(ctx, text, docID, source, title, TypePlainText, nil)
	if err != nil {
		if ing.logger != nil {
			ing.logger.Error("chunk and embed failed", "doc_id", docID, "source", source, "err", err)
		}
		ing.notifyError(source, err)
		return IngestResult{}, err
	}

	if err := ing.store.AddDocuments(ctx, docs); err != nil {
		err = fmt.Errorf("store: %w", err)
		if ing.logger != nil {
			ing.logger.Error("store documents failed", "doc_id", docID, "source", source, "err", err)
		}
		ing.notifyError(source, err)
		return IngestResult{}, err
	}

	result := IngestResult{DocumentID: docID, ChunkCount: len(docs)}
	if ing.logger != nil {
		ing.logger.Info("ingest completed", "doc_id", docID, "source", source, "chunk_count", len(docs))
	}
	if ing.onSuccess != nil {
		ing.onSuccess(result)
	}
	return result, nil
}

// IngestFile ingests file content, detecting the content type from the filename extension.
func (ing *Ingestor) IngestFile(ctx context.Context, content []byte, filename string) (IngestResult, error) {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	ct := ContentTypeFromExtension(ext)

	if ing.tracer != nil {
		var span archway.Span
		ctx, span = ing.tracer.Start(ctx, "ingest.document",
			archway.StringAttr("source", filename),
			archway.StringAttr("title", filepath.Base(filename)),
			archway.StringAttr("content_type", string(ct)))
		defer func() { span.End() }()

		result, err := ing.ingestFile(ctx, content, filename, ct)
		if err != nil {
			span.Error(err)
		} else {
			span.SetAttr(
				archway.StringAttr("doc_id", result.DocumentID),
				archway.IntAttr("chunk_count", result.ChunkCount))
		}
		return result, err
	}
	return ing.ingestFile(ctx, content, filename, ct)
}

func (ing *Ingestor) ingestFile(ctx context.Context, content []byte, filename string, ct ContentType) (IngestResult, error) {
	if ing.maxContentSize > 0 && len(content) > ing.maxContentSize {
		err := fmt.Errorf("content size %d exceeds limit %d", len(content), ing.maxContentSize)
		if ing.logger != nil {
			ing.logger.Error("content size exceeds limit",
				"source", filename, "content_bytes", len(content), "max_bytes", ing.maxContentSize)
		}
		ing.notifyError(filename, err)
		return IngestResult{}, err
	}

	extractor, ok := ing.extractors[ct]
	if !ok {
		if ing.logger != nil {
			ing.logger.Warn("no extractor registered, falling back to plain text",
				"source", filename, "content_type", string(ct))
		}
		extractor = PlainTextExtractor{}
	}

	docID := archway.NewID()
	if ing.logger != nil {
		ing.logger.Info("ingest started",
			"doc_id", docID, "source", filename, "content_type", string(ct), "content_bytes", len(content))
	}

	var text string
	var pageMeta []PageMeta

	if me, ok := extractor.(MetadataExtractor); ok {
		result, err := safeExtractWithMeta(me, content)
		if err != nil {
			err = fmt.Errorf("extract %s: %w", ct, err)
			if ing.logger != nil {
				ing.logger.Error("metadata extraction failed", "doc_id", docID, "source", filename, "err", err)
			}
			ing.notifyError(filename, err)
			return IngestResult{}, err
		}
		text = result.Text
		pageMeta = result.Meta
	} else {
		var err error
		text, err = safeExtract(extractor, content)
		if err != nil {
			err = fmt.Errorf("extract %s: %w", ct, err)
			if ing.logger != nil {
				ing.logger.Error("extraction failed", "doc_id", docID, "source", filename, "err", err)
			}
			ing.notifyError(filename, err)
			return IngestResult{}, err
		}
	}

	docs, err := ing.chunkAndEmbed(ctx, text, docID, filename, filepath.Base(filename), ct, pageMeta)
	if err != nil {
		if ing.logger != nil {
			ing.logger.Error("chunk and embed failed", "doc_id", docID, "source", filename, "err", err)
		}
		ing.notifyError(filename, err)
		return IngestResult{}, err
	}

	if err := ing.store.AddDocuments(ctx, docs); err != nil {
		err = fmt.Errorf("store: %w", err)
		if ing.logger != nil {
			ing.logger.Error("store documents failed", "doc_id", docID, "source", filename, "err", err)
		}
		ing.notifyError(filename, err)
		return IngestResult{}, err
	}

	result := IngestResult{DocumentID: docID, ChunkCount: len(docs)}
	if ing.logger != nil {
		ing.logger.Info("ingest completed", "doc_id", docID, "source", filename, "chunk_count", len(docs))
	}
	if ing.onSuccess != nil {
		ing.onSuccess(result)
	}
	return result, nil
}

// IngestReader reads all content from r and ingests it, detecting content type from filename.
func (ing *Ingestor) IngestReader(ctx context.Context, r io.Reader, filename string) (IngestResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return IngestResult{}, fmt.Errorf("read: %w", err)
	}
	return ing.IngestFile(ctx, data, filename)
}

// notifyError fires the onError hook if set.
func (ing *Ingestor) notifyError(source string, err error) {
	if ing.onError != nil {
		ing.onError(source, err)
	}
}

// safeExtract calls e.Extract, recovering any panic into an error.
func safeExtract(e Extractor, content []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panicked: %v", r)
		}
	}()
	return e.Extract(content)
}

// safeExtractWithMeta calls me.ExtractWithMeta, recovering any panic into an error.
func safeExtractWithMeta(me MetadataExtractor, content []byte) (result ExtractResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panicked: %v", r)
		}
	}()
	return me.ExtractWithMeta(content)
}

// chunkWith calls ChunkContext if the chunker implements ContextChunker,
// otherwise falls back to Chunk.
func chunkWith(ctx context.Context, chunker Chunker, text string) ([]string, error) {
	if cc, ok := chunker.(ContextChunker); ok {
		return cc.ChunkContext(ctx, text)
	}
	return chunker.Chunk(text), nil
}

// chunkAndEmbed chunks text, assigns metadata, and batches embedding calls,
// producing archway.Documents ready for VectorStore.AddDocuments.
func (ing *Ingestor) chunkAndEmbed(ctx context.Context, text, docID, source, title string, ct ContentType, pageMeta []PageMeta) ([]archway.Document, error) {
	chunker := ing.selectChunker(ct)

	chunkTexts, err := chunkWith(ctx, chunker, text)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	if len(chunkTexts) == 0 {
		if ing.logger != nil {
			ing.logger.Warn("chunker produced zero chunks", "doc_id", docID, "source", source)
		}
		return nil, nil
	}

	if ing.logger != nil {
		ing.logger.Info("chunking completed", "doc_id", docID, "chunk_count", len(chunkTexts))
	}

	docs := make([]archway.Document, len(chunkTexts))
	offset := 0
	for i, t := range chunkTexts {
		idx := strings.Index(text[offset:], t)
		startByte := offset
		if idx >= 0 {
			startByte = offset + idx
		}
		endByte := startByte + len(t)
		offset = min(endByte, len(text))

		docs[i] = archway.Document{
			ID:         archway.NewID(),
			Content:    t,
			SourceType: "chunk",
			SourceName: source,
			Metadata:   assignMeta(docID, title, i, startByte, endByte, source, pageMeta),
		}
	}

	if err := ing.batchEmbed(ctx, docs); err != nil {
		return nil, err
	}

	return docs, nil
}

// assignMeta builds the metadata map for a chunk, finding the best-matching
// PageMeta (by byte-range overlap) for page number/heading when present.
func assignMeta(docID, title string, chunkIndex, startByte, endByte int, source string, pageMeta []PageMeta) map[string]string {
	meta := map[string]string{
		"document_id": docID,
		"chunk_index": strconv.Itoa(chunkIndex),
	}
	if title != "" {
		meta["title"] = title
	}
	if source != "" {
		meta["source"] = source
	}

	var best *PageMeta
	bestOverlap := 0
	for i := range pageMeta {
		pm := &pageMeta[i]
		overlapStart := max(startByte, pm.StartByte)
		overlapEnd := min(endByte, pm.EndByte)
		overlap := overlapEnd - overlapStart
		if overlap > bestOverlap {
			bestOverlap = overlap
			best = pm
		}
	}
	if best != nil {
		if best.PageNumber > 0 {
			meta["page_number"] = strconv.Itoa(best.PageNumber)
		}
		if best.Heading != "" {
			meta["section_heading"] = best.Heading
		}
	}

	return meta
}

// selectChunker returns the markdown chunker for markdown content unless an
// explicit chunker was set via WithChunker.
func (ing *Ingestor) selectChunker(ct ContentType) Chunker {
	if ing.customChunker {
		return ing.chunker
	}
	if ct == TypeMarkdown {
		return ing.mdChunker
	}
	return ing.chunker
}

// batchEmbed embeds documents in batches of ing.batchSize.
func (ing *Ingestor) batchEmbed(ctx context.Context, docs []archway.Document) error {
	if len(docs) == 0 {
		return nil
	}

	totalBatches := (len(docs) + ing.batchSize - 1) / ing.batchSize
	if ing.logger != nil {
		ing.logger.Info("embedding started",
			"chunk_count", len(docs), "batch_size", ing.batchSize, "total_batches", totalBatches)
	}

	for i := 0; i < len(docs); i += ing.batchSize {
		end := min(i+ing.batchSize, len(docs))
		batch := docs[i:end]
		texts := make([]string, len(batch))
		for j, d := range batch {
			texts[j] = d.Content
		}

		embeddings, err := ing.embedding.Embed(ctx, texts)
		if err != nil {
			if ing.logger != nil {
				ing.logger.Error("embedding batch failed", "range", fmt.Sprintf("%d-%d", i, end), "err", err)
			}
			return fmt.Errorf("embed batch %d-%d: %w", i, end, err)
		}

		for j := range batch {
			if j < len(embeddings) {
				docs[i+j].Embedding = embeddings[j]
			}
		}
	}

	if ing.logger != nil {
		ing.logger.Info("embedding completed", "chunk_count", len(docs), "batches_processed", totalBatches)
	}

	return nil
}
