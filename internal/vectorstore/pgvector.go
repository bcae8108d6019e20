package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type PgVectorStore struct {
	db *pgxpool.Pool
}

func NewPgVectorStore(db *pgxpool.Pool) *PgVectorStore {
	return &PgVectorStore{db: db}
}

func (s *PgVectorStore) ReplaceDocumentChunks(ctx context.Context, documentID uuid.UUID, chunks []Chunk) error {
	if err := s.DeleteDocumentChunks(ctx, documentID); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range chunks {
		id := c.ID
		if id == uuid.Nil {
			id = uuid.New()
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO document_chunks (id, document_id, chunk_index, page, content, embedding, token_count)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, documentID, c.ChunkIndex, c.Page, c.Content, pgvector.NewVector(c.Embedding), c.TokenCount,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.ChunkIndex, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PgVectorStore) Search(ctx context.Context, query []float32, k int) ([]Candidate, error) {
	if k <= 0 {
		k = 10
	}

	embedding := pgvector.NewVector(query)

	rows, err := s.db.Query(ctx,
		`SELECT c.id, c.document_id, c.content, c.chunk_index, c.page, d.file_name,
		        1 - (c.embedding <=> $1) AS similarity
		 FROM document_chunks c
		 JOIN documents d ON d.id = c.document_id
		 ORDER BY c.embedding <=> $1
		 LIMIT $2`,
		embedding, k,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.Content, &c.ChunkIndex, &c.Page, &c.FileName, &c.Similarity); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

func (s *PgVectorStore) DeleteDocumentChunks(ctx context.Context, documentID uuid.UUID) error {
	_, err := s.db.Exec(ctx, "DELETE FROM document_chunks WHERE document_id = $1", documentID)
	if err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}
