package indexer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/gradbot/internal/vectorstore"
	"github.com/nikhilbhutani/gradbot/pkg/chunker"
	"github.com/nikhilbhutani/gradbot/pkg/textextract"
)

// ObjectStorage is the narrow slice of the blob store the indexer
// needs: fetching source files before extraction.
type ObjectStorage interface {
	Download(ctx context.Context, bucket, path string) (io.ReadCloser, error)
}

type Extractor interface {
	Extract(data io.ReaderAt, size int64, fileType string) ([]textextract.Page, error)
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// DocumentRef identifies one document to (re-)index.
type DocumentRef struct {
	ID       uuid.UUID
	FilePath string
}

// Indexer is the only writer of chunk rows. Indexing is a one-shot
// synchronous operation, safe to re-run after a partial failure.
type Indexer struct {
	storage   ObjectStorage
	bucket    string
	extractor Extractor
	embedder  Embedder
	store     vectorstore.VectorStore
	chunkOpts chunker.ChunkOptions
}

func New(storage ObjectStorage, bucket string, embedder Embedder, store vectorstore.VectorStore, opts chunker.ChunkOptions) *Indexer {
	return &Indexer{
		storage:   storage,
		bucket:    bucket,
		extractor: defaultExtractor{},
		embedder:  embedder,
		store:     store,
		chunkOpts: opts,
	}
}

// WithExtractor substitutes the text extractor, for tests.
func (ix *Indexer) WithExtractor(e Extractor) *Indexer {
	ix.extractor = e
	return ix
}

// Index downloads the source file, extracts page-level text, chunks
// and embeds it, and replaces the document's chunk set. The final
// state depends only on the current file content, so re-running is
// idempotent in effect.
func (ix *Indexer) Index(ctx context.Context, documentID uuid.UUID, filePath string) error {
	reader, err := ix.storage.Download(ctx, ix.bucket, filePath)
	if err != nil {
		return fmt.Errorf("download %s: %w", filePath, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read %s: %w", filePath, err)
	}

	pages, err := ix.extractor.Extract(bytes.NewReader(data), int64(len(data)), filepath.Ext(filePath))
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}

	chunks := chunker.ChunkPages(toChunkerPages(pages), ix.chunkOpts)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("generate embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(embeddings))
	}

	rows := make([]vectorstore.Chunk, len(chunks))
	for i, c := range chunks {
		rows[i] = vectorstore.Chunk{
			ID:         uuid.New(),
			DocumentID: documentID,
			ChunkIndex: c.Index,
			Page:       c.Page,
			Content:    c.Content,
			Embedding:  embeddings[i],
			TokenCount: c.TokenCount,
		}
	}

	if err := ix.store.ReplaceDocumentChunks(ctx, documentID, rows); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}

	slog.Info("document indexed", "document_id", documentID, "pages", len(pages), "chunks", len(rows))
	return nil
}

// IndexAll re-indexes the whole corpus. One document's failure does
// not stop the batch; failures are logged and returned joined.
func (ix *Indexer) IndexAll(ctx context.Context, docs []DocumentRef) error {
	var errs []error
	for _, doc := range docs {
		if err := ix.Index(ctx, doc.ID, doc.FilePath); err != nil {
			slog.Error("indexing failed, continuing batch", "document_id", doc.ID, "error", err)
			errs = append(errs, fmt.Errorf("document %s: %w", doc.ID, err))
		}
	}
	return errors.Join(errs...)
}

type defaultExtractor struct{}

func (defaultExtractor) Extract(data io.ReaderAt, size int64, fileType string) ([]textextract.Page, error) {
	return textextract.Extract(data, size, fileType)
}

func toChunkerPages(pages []textextract.Page) []chunker.Page {
	out := make([]chunker.Page, len(pages))
	for i, p := range pages {
		out[i] = chunker.Page{Number: p.Number, Text: p.Text}
	}
	return out
}
