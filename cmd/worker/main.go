package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/gradbot/internal/cache"
	"github.com/nikhilbhutani/gradbot/internal/config"
	"github.com/nikhilbhutani/gradbot/internal/database"
	"github.com/nikhilbhutani/gradbot/internal/document"
	"github.com/nikhilbhutani/gradbot/internal/embedding"
	"github.com/nikhilbhutani/gradbot/internal/indexer"
	"github.com/nikhilbhutani/gradbot/internal/llm"
	"github.com/nikhilbhutani/gradbot/internal/notify"
	"github.com/nikhilbhutani/gradbot/internal/queue"
	"github.com/nikhilbhutani/gradbot/internal/queue/workers"
	"github.com/nikhilbhutani/gradbot/internal/storage"
	"github.com/nikhilbhutani/gradbot/internal/vectorstore"
	"github.com/nikhilbhutani/gradbot/pkg/chunker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	store := storage.NewSupabaseStorage(cfg.Storage.SupabaseURL, cfg.Storage.SupabaseKey)
	gw := llm.NewGateway(cfg.LLM)

	embedSvc := embedding.NewService(gw, cfg.RAG.EmbeddingModel)
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis cache unavailable for embeddings", "error", err)
	} else {
		embedSvc = embedSvc.WithCache(cache.NewCache(rdb), cfg.RAG.EmbeddingCacheTTL)
	}

	ix := indexer.New(store, cfg.Storage.Bucket, embedSvc, vectorstore.NewPgVectorStore(db), chunker.ChunkOptions{
		ChunkSize:     cfg.RAG.ChunkSize,
		ChunkOverlap:  cfg.RAG.ChunkOverlap,
		MinPageTokens: cfg.RAG.MinPageTokens,
	})

	docSvc := document.NewService(db, store, cfg.Storage.Bucket, queue.NewClient(cfg.Redis), notify.Noop{})
	worker := workers.NewIndexingWorker(ix, docSvc)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeDocumentIndex, worker.ProcessDocumentIndex)
	mux.HandleFunc(queue.TypeCorpusReindex, worker.ProcessCorpusReindex)

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(mux); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
