package ingest

import (
	"log/slog"

	"github.com/archway-run/archway"
)

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithChunker overrides the chunker used for all content types (including
// markdown) with a single explicit implementation.
func WithChunker(c Chunker) Option {
	return func(ing *Ingestor) {
		ing.chunker = c
		ing.customChunker = true
	}
}

// WithBatchSize sets the number of chunks per Embed() call (default 64).
func WithBatchSize(n int) Option {
	return func(ing *Ingestor) { ing.batchSize = n }
}

// WithMaxContentSize sets the maximum accepted content size in bytes
// (default 50MB). IngestFile/IngestReader reject larger content.
func WithMaxContentSize(n int) Option {
	return func(ing *Ingestor) { ing.maxContentSize = n }
}

// WithExtractor registers an Extractor for a given ContentType.
func WithExtractor(ct ContentType, e Extractor) Option {
	return func(ing *Ingestor) { ing.extractors[ct] = e }
}

// WithTracer attaches a Tracer that spans each ingest.document call.
func WithTracer(t archway.Tracer) Option {
	return func(ing *Ingestor) { ing.tracer = t }
}

// WithLogger attaches a structured logger for ingest lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(ing *Ingestor) { ing.logger = l }
}

// WithOnSuccess registers a callback invoked after a successful ingest.
func WithOnSuccess(fn func(IngestResult)) Option {
	return func(ing *Ingestor) { ing.onSuccess = fn }
}

// WithOnError registers a callback invoked when ingestion of a source fails.
func WithOnError(fn func(source string, err error)) Option {
	return func(ing *Ingestor) { ing.onError = fn }
}
