package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/gradbot/internal/api/handlers"
	"github.com/nikhilbhutani/gradbot/internal/api/middleware"
	"github.com/nikhilbhutani/gradbot/internal/auth"
	"github.com/nikhilbhutani/gradbot/internal/cache"
	"github.com/nikhilbhutani/gradbot/internal/chat"
	"github.com/nikhilbhutani/gradbot/internal/config"
	"github.com/nikhilbhutani/gradbot/internal/document"
	"github.com/nikhilbhutani/gradbot/internal/embedding"
	"github.com/nikhilbhutani/gradbot/internal/llm"
	"github.com/nikhilbhutani/gradbot/internal/notify"
	"github.com/nikhilbhutani/gradbot/internal/queue"
	"github.com/nikhilbhutani/gradbot/internal/rag"
	"github.com/nikhilbhutani/gradbot/internal/storage"
	"github.com/nikhilbhutani/gradbot/internal/vectorstore"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
	jwt   *auth.JWTMiddleware
	llmGW llm.Gateway
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
		jwt:   auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
		llmGW: llm.NewGateway(cfg.LLM),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Services
	store := storage.NewSupabaseStorage(rt.cfg.Storage.SupabaseURL, rt.cfg.Storage.SupabaseKey)
	queueClient := queue.NewClient(rt.cfg.Redis)

	var notifier notify.Notifier = notify.Noop{}
	if rt.cfg.Notify.SMTPHost != "" {
		notifier = notify.NewEmailNotifier(
			rt.cfg.Notify.SMTPHost, rt.cfg.Notify.SMTPPort,
			rt.cfg.Notify.From, rt.cfg.Notify.Password,
			rt.cfg.Notify.Recipients,
		)
	}

	docSvc := document.NewService(rt.db, store, rt.cfg.Storage.Bucket, queueClient, notifier)

	vs := vectorstore.NewPgVectorStore(rt.db)
	embedSvc := embedding.NewService(rt.llmGW, rt.cfg.RAG.EmbeddingModel)
	if rt.redis != nil {
		embedSvc = embedSvc.WithCache(cache.NewCache(rt.redis), rt.cfg.RAG.EmbeddingCacheTTL)
	}

	retriever := rag.NewRetriever(vs, rag.RetrieveOptions{
		SimilarityThreshold: rt.cfg.RAG.SimilarityThreshold,
		RetrievalLimit:      rt.cfg.RAG.RetrievalLimit,
		QueryLimit:          rt.cfg.RAG.QueryLimit,
	})
	rewriter := rag.NewRewriter(rt.llmGW, rt.cfg.LLM.DefaultModel)

	chatSvc := chat.NewService(
		chat.NewPgStore(rt.db), rewriter, embedSvc, retriever, rt.llmGW,
		chat.Options{
			Provider:           rt.cfg.LLM.DefaultProvider,
			Model:              rt.cfg.LLM.DefaultModel,
			HistoryDepth:       rt.cfg.RAG.HistoryDepth,
			ContextTokenBudget: rt.cfg.RAG.ContextTokenBudget,
		},
	)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)

		chatH := handlers.NewChatHandler(chatSvc)
		r.Route("/chat", func(r chi.Router) {
			r.Post("/ask", chatH.Ask)
			r.Post("/reset", chatH.Reset)
			r.Get("/history", chatH.History)
		})

		docH := handlers.NewDocumentHandler(docSvc)
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", docH.Upload)
			r.Get("/", docH.List)
			r.Get("/{id}", docH.Get)
			r.Delete("/{id}", docH.Delete)
			r.Get("/{id}/download", docH.DownloadURL)
			r.Post("/reindex", docH.Reindex)
		})
	})

	return r
}
