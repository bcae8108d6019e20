package chunker

import (
	"github.com/nikhilbhutani/gradbot/pkg/tokenizer"
)

type ChunkOptions struct {
	ChunkSize     int // window size in tokens
	ChunkOverlap  int // tokens shared between consecutive windows
	MinPageTokens int // pages below this are skipped entirely
}

func DefaultOptions() ChunkOptions {
	return ChunkOptions{
		ChunkSize:     180,
		ChunkOverlap:  40,
		MinPageTokens: 10,
	}
}

// Page is page-level source text, as produced by extraction.
type Page struct {
	Number int // 1-based
	Text   string
}

// Chunk is a token-bounded segment of a single page.
type Chunk struct {
	Content    string
	Index      int // ordinal within the document, zero-based
	Page       int
	TokenCount int
}

// ChunkPages slides a token window of ChunkSize across every page,
// advancing by ChunkSize-ChunkOverlap each step. Pages with fewer
// than MinPageTokens tokens produce no chunks; the final window of a
// page may be shorter than ChunkSize. Chunk indices are contiguous
// from 0 across the whole document. The output depends only on the
// input and options.
func ChunkPages(pages []Page, opts ChunkOptions) []Chunk {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 180
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = 0
	}

	var chunks []Chunk
	idx := 0
	for _, p := range pages {
		tokens := tokenizer.Encode(p.Text)
		if len(tokens) < opts.MinPageTokens {
			continue
		}

		step := opts.ChunkSize - opts.ChunkOverlap
		for start := 0; start < len(tokens); start += step {
			end := start + opts.ChunkSize
			if end > len(tokens) {
				end = len(tokens)
			}
			window := tokens[start:end]
			chunks = append(chunks, Chunk{
				Content:    tokenizer.Decode(window),
				Index:      idx,
				Page:       p.Number,
				TokenCount: len(window),
			})
			idx++
			if end == len(tokens) {
				break
			}
		}
	}
	return chunks
}
