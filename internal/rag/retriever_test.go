package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/gradbot/internal/vectorstore"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results []vectorstore.Candidate
	err     error
	gotK    int
}

func (f *fakeSearcher) Search(_ context.Context, _ []float32, k int) ([]vectorstore.Candidate, error) {
	f.gotK = k
	return f.results, f.err
}

func candidate(sim float64, tokens int) vectorstore.Candidate {
	return vectorstore.Candidate{
		ChunkID:    uuid.New(),
		Content:    strings.TrimSpace(strings.Repeat("tok ", tokens)),
		FileName:   "handbook.pdf",
		Page:       1,
		Similarity: sim,
	}
}

func TestRetrieveKeepsAboveThreshold(t *testing.T) {
	s := &fakeSearcher{results: []vectorstore.Candidate{
		candidate(0.9, 5), candidate(0.4, 5), candidate(0.05, 5),
	}}
	r := NewRetriever(s, RetrieveOptions{SimilarityThreshold: 0.1, RetrievalLimit: 50, QueryLimit: 5})

	got, err := r.Retrieve(context.Background(), []float32{1})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 0.9, got[0].Similarity)
	require.Equal(t, 0.4, got[1].Similarity)
	require.Equal(t, 50, s.gotK)
}

func TestRetrieveRelaxesThresholdWhenNothingQualifies(t *testing.T) {
	s := &fakeSearcher{results: []vectorstore.Candidate{
		candidate(0.08, 5), candidate(0.02, 5),
	}}
	r := NewRetriever(s, RetrieveOptions{SimilarityThreshold: 0.1, RetrievalLimit: 50, QueryLimit: 5})

	got, err := r.Retrieve(context.Background(), []float32{1})
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestRetrieveFallsBackToBestCandidate(t *testing.T) {
	// Negative similarities fail even the relaxed zero threshold.
	s := &fakeSearcher{results: []vectorstore.Candidate{
		candidate(-0.2, 5), candidate(-0.5, 5),
	}}
	r := NewRetriever(s, RetrieveOptions{SimilarityThreshold: 0.1, RetrievalLimit: 50, QueryLimit: 5})

	got, err := r.Retrieve(context.Background(), []float32{1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, -0.2, got[0].Similarity)
}

func TestRetrieveEmptyCorpus(t *testing.T) {
	r := NewRetriever(&fakeSearcher{}, RetrieveOptions{SimilarityThreshold: 0.1})

	got, err := r.Retrieve(context.Background(), []float32{1})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRetrieveDeduplicatesAndCaps(t *testing.T) {
	dup := candidate(0.8, 5)
	results := []vectorstore.Candidate{dup, dup}
	for i := 0; i < 10; i++ {
		results = append(results, candidate(0.7-float64(i)/100, 5))
	}
	s := &fakeSearcher{results: results}
	r := NewRetriever(s, RetrieveOptions{SimilarityThreshold: 0.1, RetrievalLimit: 50, QueryLimit: 5})

	got, err := r.Retrieve(context.Background(), []float32{1})
	require.NoError(t, err)
	require.Len(t, got, 5)

	seen := map[uuid.UUID]bool{}
	for _, c := range got {
		require.False(t, seen[c.ChunkID])
		seen[c.ChunkID] = true
	}
}

func TestRetrieveSearchError(t *testing.T) {
	s := &fakeSearcher{err: errors.New("connection refused")}
	r := NewRetriever(s, RetrieveOptions{})

	_, err := r.Retrieve(context.Background(), []float32{1})
	require.Error(t, err)
}

func TestTrimByTokenBudgetStopsAtFirstOverflow(t *testing.T) {
	candidates := []vectorstore.Candidate{
		candidate(0.9, 500),
		candidate(0.8, 500),
		candidate(0.7, 500), // would exceed 1200
		candidate(0.6, 10),  // would fit, but never reached
	}

	got := TrimByTokenBudget(candidates, 1200)
	require.Len(t, got, 2)
	require.Equal(t, candidates[0].ChunkID, got[0].ChunkID)
	require.Equal(t, candidates[1].ChunkID, got[1].ChunkID)
}

func TestTrimByTokenBudgetExactFit(t *testing.T) {
	candidates := []vectorstore.Candidate{
		candidate(0.9, 700),
		candidate(0.8, 500),
	}
	got := TrimByTokenBudget(candidates, 1200)
	require.Len(t, got, 2)
}

func TestTrimByTokenBudgetFirstChunkTooLarge(t *testing.T) {
	got := TrimByTokenBudget([]vectorstore.Candidate{candidate(0.9, 1300)}, 1200)
	require.Empty(t, got)
}

func TestTrimByTokenBudgetCitationFields(t *testing.T) {
	c := vectorstore.Candidate{
		ChunkID:    uuid.New(),
		Content:    "induction runs in week one",
		FileName:   "schedule.pptx",
		Page:       4,
		Similarity: 0.9,
	}
	got := TrimByTokenBudget([]vectorstore.Candidate{c}, 1200)
	require.Len(t, got, 1)
	require.Equal(t, c.ChunkID, got[0].ChunkID)
	require.Equal(t, c.Content, got[0].Text)
	require.Equal(t, "schedule.pptx", got[0].Source)
	require.Equal(t, 4, got[0].Page)
}
