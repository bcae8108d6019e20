package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nikhilbhutani/gradbot/internal/llm"
)

// Intent is a coarse classification of what a question is asking for.
// It selects the instruction template used when reformulating a
// follow-up into a standalone search query.
type Intent string

const (
	IntentDefinition Intent = "definition"
	IntentMechanism  Intent = "mechanism"
	IntentReasoning  Intent = "reasoning"
	IntentComparison Intent = "comparison"
	IntentGeneral    Intent = "general"
)

// DetectIntent classifies a question by its leading phrase,
// case-insensitively.
func DetectIntent(question string) Intent {
	q := strings.ToLower(strings.TrimSpace(question))

	switch {
	case hasAnyPrefix(q, "what is", "what are", "define", "explain"):
		return IntentDefinition
	case strings.HasPrefix(q, "how"):
		return IntentMechanism
	case strings.HasPrefix(q, "why"):
		return IntentReasoning
	case containsAny(q, "compare", "difference", "vs"):
		return IntentComparison
	default:
		return IntentGeneral
	}
}

var intentInstructions = map[Intent]string{
	IntentDefinition: "The user wants a definition. Rewrite the current question as a standalone search query that names the exact term or concept to be defined, resolving any pronouns or references using the previous questions.",
	IntentMechanism:  "The user wants to know how something works. Rewrite the current question as a standalone search query that names the process or system in full, resolving any pronouns or references using the previous questions.",
	IntentReasoning:  "The user wants to know why something is the case. Rewrite the current question as a standalone search query that states the fact or event being questioned explicitly, resolving any pronouns or references using the previous questions.",
	IntentComparison: "The user wants a comparison. Rewrite the current question as a standalone search query that names BOTH compared entities explicitly, resolving any pronouns or references using the previous questions.",
	IntentGeneral:    "Rewrite the current question as a standalone search query that makes sense without the conversation, resolving any pronouns or references using the previous questions.",
}

// Rewriter reformulates conversational follow-ups into standalone
// retrieval queries using a stateless single-shot completion.
type Rewriter struct {
	gateway llm.Gateway
	model   string
}

func NewRewriter(gw llm.Gateway, model string) *Rewriter {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Rewriter{gateway: gw, model: model}
}

// Rewrite returns the question unchanged when there is no history.
// Otherwise it asks the completion model for a standalone query; on
// failure it falls back to the unrewritten question so retrieval
// never blocks on the rewrite step.
func (r *Rewriter) Rewrite(ctx context.Context, previousQuestions []string, question string) string {
	if len(previousQuestions) == 0 {
		return question
	}

	intent := DetectIntent(question)

	var sb strings.Builder
	sb.WriteString(intentInstructions[intent])
	sb.WriteString("\nReturn ONLY the rewritten query, no explanation.\n\nPrevious questions (oldest first):\n")
	for _, q := range previousQuestions {
		fmt.Fprintf(&sb, "- %s\n", q)
	}
	fmt.Fprintf(&sb, "\nCurrent question: %s", question)

	resp, err := r.gateway.Chat(ctx, llm.ChatRequest{
		Model: r.model,
		Messages: []llm.Message{
			{Role: "system", Content: "You rewrite conversational questions into standalone search queries for a document retrieval system."},
			{Role: "user", Content: sb.String()},
		},
	})
	if err != nil {
		slog.Warn("query rewrite failed, using original question", "intent", intent, "error", err)
		return question
	}

	rewritten := strings.TrimSpace(resp.Content)
	if rewritten == "" {
		return question
	}
	return rewritten
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
