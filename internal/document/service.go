package document

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/gradbot/internal/indexer"
	"github.com/nikhilbhutani/gradbot/internal/models"
	"github.com/nikhilbhutani/gradbot/internal/notify"
	"github.com/nikhilbhutani/gradbot/internal/storage"
	"github.com/nikhilbhutani/gradbot/pkg/textextract"
)

// TaskEnqueuer schedules background indexing work.
type TaskEnqueuer interface {
	EnqueueDocumentIndex(documentID uuid.UUID, filePath string) error
	EnqueueCorpusReindex() error
}

// Service owns document metadata and the stored source files. It
// never touches chunk rows directly; indexing is the indexer's job,
// reached through the task queue.
type Service struct {
	db       *pgxpool.Pool
	storage  storage.Storage
	bucket   string
	tasks    TaskEnqueuer
	notifier notify.Notifier
}

func NewService(db *pgxpool.Pool, store storage.Storage, bucket string, tasks TaskEnqueuer, notifier notify.Notifier) *Service {
	return &Service{
		db:       db,
		storage:  store,
		bucket:   bucket,
		tasks:    tasks,
		notifier: notifier,
	}
}

type UploadRequest struct {
	FileName    string
	Extension   string
	MimeType    string
	Category    string
	Description string
	Size        int64
	Data        io.Reader
}

// Upload stores the file, records its metadata, schedules indexing,
// and announces the new document. The announcement is best-effort.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*models.Document, error) {
	ext := strings.ToLower(strings.TrimPrefix(req.Extension, "."))
	if !supported(ext) {
		return nil, fmt.Errorf("%w: .%s", textextract.ErrUnsupportedFormat, ext)
	}

	docID := uuid.New()
	path := fmt.Sprintf("documents/%s.%s", docID, ext)

	if err := s.storage.Upload(ctx, s.bucket, path, req.Data, req.MimeType); err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	var doc models.Document
	err := s.db.QueryRow(ctx,
		`INSERT INTO documents (id, file_name, file_path, file_extension, mime_type, file_size_bytes, category, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, file_name, file_path, file_extension, mime_type, file_size_bytes, category, description, views, created_at`,
		docID, req.FileName, path, ext, req.MimeType, req.Size, req.Category, req.Description,
	).Scan(&doc.ID, &doc.FileName, &doc.FilePath, &doc.FileExtension, &doc.MimeType,
		&doc.FileSizeBytes, &doc.Category, &doc.Description, &doc.Views, &doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	if err := s.tasks.EnqueueDocumentIndex(doc.ID, doc.FilePath); err != nil {
		slog.Error("failed to enqueue indexing", "document_id", doc.ID, "error", err)
	}

	s.notifier.DocumentUploaded(doc.FileName, doc.Description)

	return &doc, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRow(ctx,
		`SELECT id, file_name, file_path, file_extension, mime_type, file_size_bytes, category, description, views, created_at
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&doc.ID, &doc.FileName, &doc.FilePath, &doc.FileExtension, &doc.MimeType,
		&doc.FileSizeBytes, &doc.Category, &doc.Description, &doc.Views, &doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

func (s *Service) List(ctx context.Context, category string) ([]models.Document, error) {
	query := `SELECT id, file_name, file_path, file_extension, mime_type, file_size_bytes, category, description, views, created_at
	          FROM documents`
	args := []interface{}{}
	if category != "" {
		query += " WHERE category = $1"
		args = append(args, category)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.FileName, &d.FilePath, &d.FileExtension, &d.MimeType,
			&d.FileSizeBytes, &d.Category, &d.Description, &d.Views, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ListRefs provides {id, path} pairs for batch re-indexing.
func (s *Service) ListRefs(ctx context.Context) ([]indexer.DocumentRef, error) {
	rows, err := s.db.Query(ctx, "SELECT id, file_path FROM documents ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list document refs: %w", err)
	}
	defer rows.Close()

	var refs []indexer.DocumentRef
	for rows.Next() {
		var ref indexer.DocumentRef
		if err := rows.Scan(&ref.ID, &ref.FilePath); err != nil {
			return nil, fmt.Errorf("scan document ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// Delete removes the metadata row (chunks go with it by cascade) and
// then the stored file, best-effort.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, "DELETE FROM documents WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if doc.FilePath != "" {
		if err := s.storage.Delete(ctx, s.bucket, doc.FilePath); err != nil {
			slog.Warn("failed to delete stored file", "document_id", id, "path", doc.FilePath, "error", err)
		}
	}
	return nil
}

// DownloadURL returns a short-lived signed URL and counts the view.
func (s *Service) DownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	url, err := s.storage.CreateSignedURL(ctx, s.bucket, doc.FilePath, time.Minute)
	if err != nil {
		return "", fmt.Errorf("sign download url: %w", err)
	}

	if _, err := s.db.Exec(ctx, "UPDATE documents SET views = views + 1 WHERE id = $1", id); err != nil {
		slog.Warn("failed to count view", "document_id", id, "error", err)
	}

	return url, nil
}

// Reindex schedules a corpus-wide re-index.
func (s *Service) Reindex() error {
	return s.tasks.EnqueueCorpusReindex()
}

func supported(ext string) bool {
	for _, t := range textextract.SupportedTypes() {
		if t == "."+ext {
			return true
		}
	}
	return false
}
