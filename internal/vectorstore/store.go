package vectorstore

import (
	"context"

	"github.com/google/uuid"
)

// Chunk is one embedded segment of a document, as persisted.
type Chunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	ChunkIndex int
	Page       int
	Content    string
	Embedding  []float32
	TokenCount int
}

// Candidate is a similarity-search hit. Similarity follows the
// higher-is-more-relevant convention; ordering of a result set is
// descending by similarity.
type Candidate struct {
	ChunkID    uuid.UUID `json:"chunk_id"`
	DocumentID uuid.UUID `json:"document_id"`
	Content    string    `json:"content"`
	ChunkIndex int       `json:"chunk_index"`
	Page       int       `json:"page"`
	FileName   string    `json:"file_name"`
	Similarity float64   `json:"similarity"`
}

type VectorStore interface {
	// ReplaceDocumentChunks deletes every chunk of the document and
	// then inserts the given set. The delete completes before any
	// insert starts; a failure in between leaves the document with no
	// searchable chunks until the next successful index run.
	ReplaceDocumentChunks(ctx context.Context, documentID uuid.UUID, chunks []Chunk) error
	Search(ctx context.Context, query []float32, k int) ([]Candidate, error)
	DeleteDocumentChunks(ctx context.Context, documentID uuid.UUID) error
}
