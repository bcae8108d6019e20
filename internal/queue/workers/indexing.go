package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/nikhilbhutani/gradbot/internal/indexer"
	"github.com/nikhilbhutani/gradbot/internal/queue"
)

// RefLister supplies the documents to touch during a corpus reindex.
type RefLister interface {
	ListRefs(ctx context.Context) ([]indexer.DocumentRef, error)
}

type IndexingWorker struct {
	indexer *indexer.Indexer
	docs    RefLister
}

func NewIndexingWorker(ix *indexer.Indexer, docs RefLister) *IndexingWorker {
	return &IndexingWorker{indexer: ix, docs: docs}
}

func (w *IndexingWorker) ProcessDocumentIndex(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentIndexPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	docID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("parse document ID: %w", err)
	}

	slog.Info("indexing document", "document_id", docID, "path", payload.FilePath)
	return w.indexer.Index(ctx, docID, payload.FilePath)
}

func (w *IndexingWorker) ProcessCorpusReindex(ctx context.Context, _ *asynq.Task) error {
	refs, err := w.docs.ListRefs(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	slog.Info("reindexing corpus", "documents", len(refs))
	return w.indexer.IndexAll(ctx, refs)
}
