package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	LLM      LLMConfig
	Storage  StorageConfig
	RAG      RAGConfig
	Notify   NotifyConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
}

type LLMConfig struct {
	OpenAIKey        string
	AnthropicKey     string
	DefaultProvider  string
	DefaultModel     string
	FallbackProvider string
	MaxRetries       int
}

type StorageConfig struct {
	SupabaseURL string
	SupabaseKey string
	Bucket      string
}

// RAGConfig carries the retrieval pipeline knobs. The source corpus
// never converged on single values for these, so they are all
// environment-tunable with conservative defaults.
type RAGConfig struct {
	ChunkSize           int
	ChunkOverlap        int
	MinPageTokens       int
	SimilarityThreshold float64
	RetrievalLimit      int
	QueryLimit          int
	ContextTokenBudget  int
	HistoryDepth        int
	EmbeddingModel      string
	EmbeddingCacheTTL   time.Duration
}

type NotifyConfig struct {
	SMTPHost   string
	SMTPPort   int
	From       string
	Password   string
	Recipients []string
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	smtpPort, err := getEnvInt("SMTP_PORT", 587)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	rag, err := loadRAG()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		LLM: LLMConfig{
			OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "openai"),
			DefaultModel:     getEnv("LLM_DEFAULT_MODEL", "gpt-4o-mini"),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			MaxRetries:       maxRetries,
		},
		Storage: StorageConfig{
			SupabaseURL: getEnv("SUPABASE_URL", ""),
			SupabaseKey: getEnv("SUPABASE_SERVICE_KEY", ""),
			Bucket:      getEnv("STORAGE_BUCKET", "Documents"),
		},
		RAG: rag,
		Notify: NotifyConfig{
			SMTPHost:   getEnv("SMTP_HOST", ""),
			SMTPPort:   smtpPort,
			From:       getEnv("SMTP_FROM", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			Recipients: splitList(getEnv("NOTIFY_RECIPIENTS", "")),
		},
	}

	return cfg, nil
}

func loadRAG() (RAGConfig, error) {
	chunkSize, err := getEnvInt("RAG_CHUNK_SIZE", 180)
	if err != nil {
		return RAGConfig{}, fmt.Errorf("invalid RAG_CHUNK_SIZE: %w", err)
	}
	overlap, err := getEnvInt("RAG_CHUNK_OVERLAP", 40)
	if err != nil {
		return RAGConfig{}, fmt.Errorf("invalid RAG_CHUNK_OVERLAP: %w", err)
	}
	if overlap >= chunkSize {
		return RAGConfig{}, fmt.Errorf("RAG_CHUNK_OVERLAP (%d) must be smaller than RAG_CHUNK_SIZE (%d)", overlap, chunkSize)
	}
	minTokens, err := getEnvInt("RAG_MIN_PAGE_TOKENS", 10)
	if err != nil {
		return RAGConfig{}, fmt.Errorf("invalid RAG_MIN_PAGE_TOKENS: %w", err)
	}
	threshold, err := getEnvFloat("RAG_SIMILARITY_THRESHOLD", 0.1)
	if err != nil {
		return RAGConfig{}, fmt.Errorf("invalid RAG_SIMILARITY_THRESHOLD: %w", err)
	}
	retrievalLimit, err := getEnvInt("RAG_RETRIEVAL_LIMIT", 50)
	if err != nil {
		return RAGConfig{}, fmt.Errorf("invalid RAG_RETRIEVAL_LIMIT: %w", err)
	}
	queryLimit, err := getEnvInt("RAG_QUERY_LIMIT", 5)
	if err != nil {
		return RAGConfig{}, fmt.Errorf("invalid RAG_QUERY_LIMIT: %w", err)
	}
	budget, err := getEnvInt("RAG_CONTEXT_TOKEN_BUDGET", 1200)
	if err != nil {
		return RAGConfig{}, fmt.Errorf("invalid RAG_CONTEXT_TOKEN_BUDGET: %w", err)
	}
	historyDepth, err := getEnvInt("RAG_HISTORY_DEPTH", 3)
	if err != nil {
		return RAGConfig{}, fmt.Errorf("invalid RAG_HISTORY_DEPTH: %w", err)
	}
	cacheTTL, err := getEnvInt("RAG_EMBEDDING_CACHE_TTL_SECONDS", 86400)
	if err != nil {
		return RAGConfig{}, fmt.Errorf("invalid RAG_EMBEDDING_CACHE_TTL_SECONDS: %w", err)
	}

	return RAGConfig{
		ChunkSize:           chunkSize,
		ChunkOverlap:        overlap,
		MinPageTokens:       minTokens,
		SimilarityThreshold: threshold,
		RetrievalLimit:      retrievalLimit,
		QueryLimit:          queryLimit,
		ContextTokenBudget:  budget,
		HistoryDepth:        historyDepth,
		EmbeddingModel:      getEnv("RAG_EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingCacheTTL:   time.Duration(cacheTTL) * time.Second,
	}, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
