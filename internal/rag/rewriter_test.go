package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/nikhilbhutani/gradbot/internal/llm"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	content string
	err     error
	gotReq  *llm.ChatRequest
	calls   int
}

func (f *fakeGateway) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.calls++
	f.gotReq = &req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Content: f.content}, nil
}

func (f *fakeGateway) Embed(context.Context, llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeGateway) Provider(string) (llm.Provider, error) {
	return nil, errors.New("not implemented")
}

func TestDetectIntent(t *testing.T) {
	cases := []struct {
		question string
		want     Intent
	}{
		{"What is the graduate programme?", IntentDefinition},
		{"what are the core values", IntentDefinition},
		{"Define onboarding", IntentDefinition},
		{"Explain the rotation system", IntentDefinition},
		{"How does the buddy scheme work?", IntentMechanism},
		{"how long is the probation period", IntentMechanism},
		{"Why was the schedule changed?", IntentReasoning},
		{"Compare the two tracks", IntentComparison},
		{"what's the difference between tracks", IntentComparison},
		{"engineering vs consulting track", IntentComparison},
		{"Tell me about the first week", IntentGeneral},
		{"", IntentGeneral},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, DetectIntent(tc.question), "question: %q", tc.question)
	}
}

func TestRewriteNoHistoryIsIdentity(t *testing.T) {
	gw := &fakeGateway{content: "should not be used"}
	r := NewRewriter(gw, "")

	got := r.Rewrite(context.Background(), nil, "What is the buddy scheme?")
	require.Equal(t, "What is the buddy scheme?", got)
	require.Zero(t, gw.calls)
}

func TestRewriteUsesModelOutput(t *testing.T) {
	gw := &fakeGateway{content: "  buddy scheme pairing rules graduate programme  "}
	r := NewRewriter(gw, "gpt-4o-mini")

	got := r.Rewrite(context.Background(), []string{"What is the buddy scheme?"}, "How does it work?")
	require.Equal(t, "buddy scheme pairing rules graduate programme", got)
	require.Equal(t, 1, gw.calls)

	// History and the current question both reach the model.
	require.Len(t, gw.gotReq.Messages, 2)
	require.Contains(t, gw.gotReq.Messages[1].Content, "What is the buddy scheme?")
	require.Contains(t, gw.gotReq.Messages[1].Content, "How does it work?")
}

func TestRewriteFallsBackOnError(t *testing.T) {
	gw := &fakeGateway{err: errors.New("rate limited")}
	r := NewRewriter(gw, "")

	got := r.Rewrite(context.Background(), []string{"earlier question"}, "How does it work?")
	require.Equal(t, "How does it work?", got)
}

func TestRewriteFallsBackOnEmptyOutput(t *testing.T) {
	gw := &fakeGateway{content: "   "}
	r := NewRewriter(gw, "")

	got := r.Rewrite(context.Background(), []string{"earlier question"}, "How does it work?")
	require.Equal(t, "How does it work?", got)
}
