package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "0.0.0.0:8080", cfg.Addr())
	require.Equal(t, "gpt-4o-mini", cfg.LLM.DefaultModel)
	require.Equal(t, "Documents", cfg.Storage.Bucket)

	require.Equal(t, 180, cfg.RAG.ChunkSize)
	require.Equal(t, 40, cfg.RAG.ChunkOverlap)
	require.Equal(t, 10, cfg.RAG.MinPageTokens)
	require.Equal(t, 0.1, cfg.RAG.SimilarityThreshold)
	require.Equal(t, 5, cfg.RAG.QueryLimit)
	require.Equal(t, 1200, cfg.RAG.ContextTokenBudget)
	require.Equal(t, 3, cfg.RAG.HistoryDepth)
	require.Equal(t, "text-embedding-3-small", cfg.RAG.EmbeddingModel)
	require.Equal(t, 24*time.Hour, cfg.RAG.EmbeddingCacheTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RAG_CHUNK_SIZE", "300")
	t.Setenv("RAG_CHUNK_OVERLAP", "60")
	t.Setenv("NOTIFY_RECIPIENTS", "a@example.com, b@example.com")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 300, cfg.RAG.ChunkSize)
	require.Equal(t, 60, cfg.RAG.ChunkOverlap)
	require.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Notify.Recipients)
}

func TestLoadRejectsOverlapNotBelowChunkSize(t *testing.T) {
	t.Setenv("RAG_CHUNK_SIZE", "100")
	t.Setenv("RAG_CHUNK_OVERLAP", "100")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsMalformedInt(t *testing.T) {
	t.Setenv("RAG_QUERY_LIMIT", "five")

	_, err := Load()
	require.Error(t, err)
}

func TestValidateRequiredVars(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "DATABASE_URL")
	require.Contains(t, err.Error(), "JWT_SECRET")

	cfg.Database.URL = "postgres://localhost/app"
	cfg.Auth.JWTSecret = "secret"
	require.NoError(t, cfg.Validate())
}
