package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/gradbot/internal/llm"
	"github.com/nikhilbhutani/gradbot/internal/models"
	"github.com/nikhilbhutani/gradbot/internal/rag"
	"github.com/nikhilbhutani/gradbot/internal/vectorstore"
	"github.com/nikhilbhutani/gradbot/pkg/tokenizer"
)

// ErrSessionUnavailable means the user's chat could not be resolved
// or created; Ask aborts before any message is written.
var ErrSessionUnavailable = errors.New("chat session unavailable")

type Embedder interface {
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

type QueryRewriter interface {
	Rewrite(ctx context.Context, previousQuestions []string, question string) string
}

type SourceRetriever interface {
	Retrieve(ctx context.Context, queryEmbedding []float32) ([]vectorstore.Candidate, error)
}

type Options struct {
	Provider           string
	Model              string
	HistoryDepth       int // user questions fed to the rewriter; prompt history is twice this
	ContextTokenBudget int
}

// Service is the conversation manager: one active chat per user,
// persisted turns, and prompt assembly from bounded history plus
// retrieved context.
type Service struct {
	store     Store
	rewriter  QueryRewriter
	embedder  Embedder
	retriever SourceRetriever
	gateway   llm.Gateway
	opts      Options
}

func NewService(store Store, rewriter QueryRewriter, embedder Embedder, retriever SourceRetriever, gw llm.Gateway, opts Options) *Service {
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	if opts.HistoryDepth <= 0 {
		opts.HistoryDepth = 3
	}
	if opts.ContextTokenBudget <= 0 {
		opts.ContextTokenBudget = 1200
	}
	return &Service{
		store:     store,
		rewriter:  rewriter,
		embedder:  embedder,
		retriever: retriever,
		gateway:   gw,
		opts:      opts,
	}
}

const systemPrompt = `You are an assistant for a graduate programme knowledge base.
Answer ONLY using the provided context.
Cite sources inline using the format [source, p.page].
If the answer is not in the context, say you do not know.`

type Answer struct {
	Answer   string         `json:"answer"`
	Question string         `json:"question"`
	Sources  []rag.Citation `json:"sources"`
	ChatID   uuid.UUID      `json:"chat_id"`
}

// Ask answers a question inside the user's chat session. The
// rewritten query drives retrieval only; the prompt and the persisted
// transcript carry the question as the user asked it. The question
// and answer are persisted together after the completion succeeds, so
// a failed completion leaves no new messages.
func (s *Service) Ask(ctx context.Context, userID uuid.UUID, question string) (*Answer, error) {
	chat, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	recent, err := s.store.RecentUserMessages(ctx, chat.ID, s.opts.HistoryDepth)
	if err != nil {
		return nil, fmt.Errorf("load question history: %w", err)
	}
	previousQuestions := contentsOldestFirst(recent)

	query := s.rewriter.Rewrite(ctx, previousQuestions, question)

	queryEmbedding, err := s.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := s.retriever.Retrieve(ctx, queryEmbedding)
	if err != nil {
		return nil, fmt.Errorf("retrieve sources: %w", err)
	}
	sources := rag.TrimByTokenBudget(candidates, s.opts.ContextTokenBudget)

	history, err := s.store.RecentMessages(ctx, chat.ID, 2*s.opts.HistoryDepth)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}

	messages := buildPrompt(history, sources, question)

	resp, err := s.gateway.Chat(ctx, llm.ChatRequest{
		Provider: s.opts.Provider,
		Model:    s.opts.Model,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	answer := strings.TrimSpace(resp.Content)

	sourceIDs := make([]uuid.UUID, len(sources))
	for i, c := range sources {
		sourceIDs[i] = c.ChunkID
	}

	userMsg := &models.Message{
		ChatID:     chat.ID,
		Role:       models.RoleUser,
		Content:    question,
		TokenCount: tokenizer.Count(question),
	}
	assistantMsg := &models.Message{
		ChatID:     chat.ID,
		Role:       models.RoleAssistant,
		Content:    answer,
		TokenCount: tokenizer.Count(answer),
		Sources:    sourceIDs,
	}
	if err := s.store.AppendTurn(ctx, userMsg, assistantMsg); err != nil {
		return nil, fmt.Errorf("persist turn: %w", err)
	}

	return &Answer{
		Answer:   answer,
		Question: question,
		Sources:  sources,
		ChatID:   chat.ID,
	}, nil
}

// Reset deletes the user's chat and its messages and starts a fresh
// one, returning the new chat id.
func (s *Service) Reset(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	current, err := s.store.Find(ctx, userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	if current != nil {
		if err := s.store.Delete(ctx, current.ID); err != nil {
			return uuid.Nil, fmt.Errorf("delete chat: %w", err)
		}
	}

	fresh, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	return fresh.ID, nil
}

// History returns the user's messages in chronological order. A user
// without a chat gets an empty history; none is created for them.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Message, error) {
	chat, err := s.store.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, nil
	}

	messages, err := s.store.RecentMessages(ctx, chat.ID, limit)
	if err != nil {
		return nil, err
	}
	reverse(messages)
	return messages, nil
}

// buildPrompt assembles the completion input: the system instruction,
// the bounded history in original role/content form, then a final
// user message carrying the assembled context and the question as
// originally asked.
func buildPrompt(recentHistory []models.Message, sources []rag.Citation, question string) []llm.Message {
	messages := []llm.Message{{Role: "system", Content: systemPrompt}}

	history := make([]models.Message, len(recentHistory))
	copy(history, recentHistory)
	reverse(history)
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	messages = append(messages, llm.Message{
		Role:    "user",
		Content: fmt.Sprintf("Context:\n%s\n\nQuestion:\n%s", formatContext(sources), question),
	})
	return messages
}

func formatContext(sources []rag.Citation) string {
	if len(sources) == 0 {
		return "(no relevant documents found)"
	}
	blocks := make([]string, len(sources))
	for i, c := range sources {
		blocks[i] = fmt.Sprintf("%s\n\nSource: [%s, p.%d]", c.Text, c.Source, c.Page)
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

func contentsOldestFirst(newestFirst []models.Message) []string {
	out := make([]string, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		out = append(out, newestFirst[i].Content)
	}
	return out
}

func reverse(messages []models.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
