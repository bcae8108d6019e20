package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/gradbot/internal/vectorstore"
	"github.com/nikhilbhutani/gradbot/pkg/chunker"
	"github.com/nikhilbhutani/gradbot/pkg/textextract"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	files map[string]string
}

func (f *fakeStorage) Download(_ context.Context, _, path string) (io.ReadCloser, error) {
	content, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", path)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

// passthroughExtractor treats the raw file content as one page of text.
type passthroughExtractor struct{}

func (passthroughExtractor) Extract(data io.ReaderAt, size int64, _ string) ([]textextract.Page, error) {
	buf := make([]byte, size)
	if _, err := data.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return []textextract.Page{{Number: 1, Text: string(buf)}}, nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

type fakeVectorStore struct {
	chunks   map[uuid.UUID][]vectorstore.Chunk
	replaces int
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{chunks: map[uuid.UUID][]vectorstore.Chunk{}}
}

func (f *fakeVectorStore) ReplaceDocumentChunks(_ context.Context, documentID uuid.UUID, chunks []vectorstore.Chunk) error {
	f.replaces++
	f.chunks[documentID] = chunks
	return nil
}

func (f *fakeVectorStore) Search(context.Context, []float32, int) ([]vectorstore.Candidate, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeVectorStore) DeleteDocumentChunks(_ context.Context, documentID uuid.UUID) error {
	delete(f.chunks, documentID)
	return nil
}

func words(n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(out, " ")
}

func testIndexer(storage *fakeStorage, vs *fakeVectorStore) *Indexer {
	return New(storage, "documents", &fakeEmbedder{}, vs, chunker.DefaultOptions()).
		WithExtractor(passthroughExtractor{})
}

func TestIndexStoresChunks(t *testing.T) {
	storage := &fakeStorage{files: map[string]string{"documents/a.pdf": words(250)}}
	vs := newFakeVectorStore()
	ix := testIndexer(storage, vs)

	docID := uuid.New()
	require.NoError(t, ix.Index(context.Background(), docID, "documents/a.pdf"))

	stored := vs.chunks[docID]
	require.Len(t, stored, 2)
	for i, c := range stored {
		require.Equal(t, docID, c.DocumentID)
		require.Equal(t, i, c.ChunkIndex)
		require.Equal(t, 1, c.Page)
		require.NotEmpty(t, c.Embedding)
		require.NotEqual(t, uuid.Nil, c.ID)
	}
}

func TestIndexReplacesPreviousChunks(t *testing.T) {
	storage := &fakeStorage{files: map[string]string{"documents/a.pdf": words(250)}}
	vs := newFakeVectorStore()
	ix := testIndexer(storage, vs)

	docID := uuid.New()
	require.NoError(t, ix.Index(context.Background(), docID, "documents/a.pdf"))

	// Shrink the file and re-index; stale chunks must not survive.
	storage.files["documents/a.pdf"] = words(100)
	require.NoError(t, ix.Index(context.Background(), docID, "documents/a.pdf"))

	require.Len(t, vs.chunks[docID], 1)
	require.Equal(t, 2, vs.replaces)
}

func TestIndexDownloadFailure(t *testing.T) {
	vs := newFakeVectorStore()
	ix := testIndexer(&fakeStorage{files: map[string]string{}}, vs)

	err := ix.Index(context.Background(), uuid.New(), "documents/missing.pdf")
	require.Error(t, err)
	require.Zero(t, vs.replaces)
}

func TestIndexEmbeddingFailureWritesNothing(t *testing.T) {
	storage := &fakeStorage{files: map[string]string{"documents/a.pdf": words(50)}}
	vs := newFakeVectorStore()
	ix := New(storage, "documents", &fakeEmbedder{err: errors.New("quota")}, vs, chunker.DefaultOptions()).
		WithExtractor(passthroughExtractor{})

	err := ix.Index(context.Background(), uuid.New(), "documents/a.pdf")
	require.Error(t, err)
	require.Zero(t, vs.replaces)
}

func TestIndexAllContinuesPastFailures(t *testing.T) {
	storage := &fakeStorage{files: map[string]string{
		"documents/a.pdf": words(50),
		"documents/c.pdf": words(60),
	}}
	vs := newFakeVectorStore()
	ix := testIndexer(storage, vs)

	okA := DocumentRef{ID: uuid.New(), FilePath: "documents/a.pdf"}
	missing := DocumentRef{ID: uuid.New(), FilePath: "documents/b.pdf"}
	okC := DocumentRef{ID: uuid.New(), FilePath: "documents/c.pdf"}

	err := ix.IndexAll(context.Background(), []DocumentRef{okA, missing, okC})
	require.Error(t, err)
	require.Contains(t, err.Error(), missing.ID.String())

	// Both healthy documents were still indexed.
	require.NotEmpty(t, vs.chunks[okA.ID])
	require.NotEmpty(t, vs.chunks[okC.ID])
	require.Empty(t, vs.chunks[missing.ID])
}
