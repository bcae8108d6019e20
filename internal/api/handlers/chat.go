package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/gradbot/internal/auth"
	"github.com/nikhilbhutani/gradbot/internal/chat"
	"github.com/nikhilbhutani/gradbot/internal/models"
)

// ChatService is the conversation surface the handler talks to.
type ChatService interface {
	Ask(ctx context.Context, userID uuid.UUID, question string) (*chat.Answer, error)
	Reset(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Message, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type askRequest struct {
	Question string `json:"question"`
}

func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question required"})
		return
	}

	answer, err := h.svc.Ask(r.Context(), auth.UserIDFromContext(r.Context()), req.Question)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, chat.ErrSessionUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

func (h *ChatHandler) Reset(w http.ResponseWriter, r *http.Request) {
	chatID, err := h.svc.Reset(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"chat_id": chatID.String()})
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 100
	}

	messages, err := h.svc.History(r.Context(), auth.UserIDFromContext(r.Context()), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages, "count": len(messages)})
}
