package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/nikhilbhutani/gradbot/internal/llm"
)

// Cache stores embedding vectors keyed by content hash. A nil cache
// is valid; caching is an optimization, never a correctness
// requirement.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type Service struct {
	gateway  llm.Gateway
	model    string
	cache    Cache
	cacheTTL time.Duration
}

func NewService(gw llm.Gateway, model string) *Service {
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &Service{gateway: gw, model: model}
}

// WithCache enables content-hash caching of single-text embeddings.
func (s *Service) WithCache(cache Cache, ttl time.Duration) *Service {
	s.cache = cache
	s.cacheTTL = ttl
	return s
}

// Embed converts texts to vectors, batching calls to stay under API
// input limits. Bulk embedding (indexing) bypasses the cache.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	const batchSize = 100
	var allEmbeddings [][]float32

	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := s.gateway.Embed(ctx, llm.EmbeddingRequest{
			Model: s.model,
			Input: texts[i:end],
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch %d: %w", i/batchSize, err)
		}

		allEmbeddings = append(allEmbeddings, resp.Embeddings...)
	}

	return allEmbeddings, nil
}

// EmbedSingle embeds one text, consulting the cache first when one is
// configured. Cache failures are logged and treated as misses.
func (s *Service) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	key := s.cacheKey(text)

	if s.cache != nil {
		var cached []float32
		if err := s.cache.Get(ctx, key, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	embeddings, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, embeddings[0], s.cacheTTL); err != nil {
			slog.Warn("embedding cache write failed", "error", err)
		}
	}

	return embeddings[0], nil
}

func (s *Service) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embedding:%s:%s", s.model, hex.EncodeToString(sum[:]))
}
