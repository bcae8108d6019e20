package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/gradbot/internal/vectorstore"
	"github.com/nikhilbhutani/gradbot/pkg/tokenizer"
)

// Searcher is the vector search collaborator. Results arrive ordered
// descending by similarity.
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]vectorstore.Candidate, error)
}

type RetrieveOptions struct {
	SimilarityThreshold float64 // minimum similarity to count as relevant
	RetrievalLimit      int     // candidates fetched from the search backend
	QueryLimit          int     // candidates kept after filtering
}

type Retriever struct {
	search Searcher
	opts   RetrieveOptions
}

func NewRetriever(search Searcher, opts RetrieveOptions) *Retriever {
	if opts.RetrievalLimit <= 0 {
		opts.RetrievalLimit = 50
	}
	if opts.QueryLimit <= 0 {
		opts.QueryLimit = 5
	}
	return &Retriever{search: search, opts: opts}
}

// Retrieve runs similarity search and applies the relevance policy:
// keep candidates at or above the threshold; if none qualify, relax
// the threshold to zero; if still none, keep the single best
// candidate unconditionally. Retrieval over a non-empty corpus never
// returns an empty set — a possibly irrelevant source beats "no
// documents found". The result is deduplicated by chunk id and capped
// at QueryLimit, ordered descending by similarity.
func (r *Retriever) Retrieve(ctx context.Context, queryEmbedding []float32) ([]vectorstore.Candidate, error) {
	candidates, err := r.search.Search(ctx, queryEmbedding, r.opts.RetrievalLimit)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	filtered := filterBySimilarity(candidates, r.opts.SimilarityThreshold)
	if len(filtered) == 0 {
		filtered = filterBySimilarity(candidates, 0)
	}
	if len(filtered) == 0 {
		filtered = candidates[:1]
	}

	seen := make(map[uuid.UUID]bool, len(filtered))
	result := make([]vectorstore.Candidate, 0, r.opts.QueryLimit)
	for _, c := range filtered {
		if seen[c.ChunkID] {
			continue
		}
		seen[c.ChunkID] = true
		result = append(result, c)
		if len(result) == r.opts.QueryLimit {
			break
		}
	}
	return result, nil
}

func filterBySimilarity(candidates []vectorstore.Candidate, threshold float64) []vectorstore.Candidate {
	var out []vectorstore.Candidate
	for _, c := range candidates {
		if c.Similarity >= threshold {
			out = append(out, c)
		}
	}
	return out
}

// Citation is a chunk reference surfaced to the end user as evidence
// for an answer.
type Citation struct {
	ChunkID uuid.UUID `json:"chunk_id"`
	Text    string    `json:"text"`
	Source  string    `json:"source"`
	Page    int       `json:"page"`
}

// TrimByTokenBudget accepts candidates in the given
// (descending-similarity) order while the running token total stays
// within budget, and stops at the first candidate that would exceed
// it. Greedy by rank on purpose: a lower-ranked chunk never displaces
// a higher-ranked one, even if it would fit.
func TrimByTokenBudget(candidates []vectorstore.Candidate, budget int) []Citation {
	var citations []Citation
	total := 0
	for _, c := range candidates {
		n := tokenizer.Count(c.Content)
		if total+n > budget {
			break
		}
		total += n
		citations = append(citations, Citation{
			ChunkID: c.ChunkID,
			Text:    c.Content,
			Source:  c.FileName,
			Page:    c.Page,
		})
	}
	return citations
}
