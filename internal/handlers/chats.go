package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ragchat/internal/auth"
	"ragchat/internal/logger"
	"ragchat/internal/service/chat"
	"ragchat/internal/store"
)

type ChatsResponse struct {
	Chats []store.ConversationSummary `json:"chats"`
}

type CreateChatResponse struct {
	ID string `json:"id"`
}

type MessagesResponse struct {
	Messages []store.Message `json:"messages"`
}

type SendMessageRequest struct {
	Message string `json:"message"`
}

// ListChatsHandler returns the user's conversations.
func (h *Handlers) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, ChatsResponse{Chats: h.cfg.Chats.List(auth.Username(r))})
}

// CreateChatHandler opens an empty conversation.
func (h *Handlers) CreateChatHandler(w http.ResponseWriter, r *http.Request) {
	id, err := h.cfg.Chats.Create(auth.Username(r))
	if err != nil {
		logger.Log.WithError(err).Error("Error creating conversation")
		h.sendError(w, http.StatusInternalServerError, "Error creating conversation", err)
		return
	}
	h.sendJSON(w, http.StatusCreated, CreateChatResponse{ID: id})
}

// GetChatHandler returns a conversation's transcript.
func (h *Handlers) GetChatHandler(w http.ResponseWriter, r *http.Request) {
	messages, err := h.cfg.Chats.Get(auth.Username(r), r.PathValue("id"))
	if err != nil {
		h.sendError(w, http.StatusNotFound, "Conversation not found", nil)
		return
	}
	h.sendJSON(w, http.StatusOK, MessagesResponse{Messages: messages})
}

// DeleteChatHandler removes a conversation.
func (h *Handlers) DeleteChatHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.cfg.Chats.Delete(auth.Username(r), r.PathValue("id")); err != nil {
		h.sendError(w, http.StatusNotFound, "Conversation not found", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// SendMessageHandler runs one chat turn and streams the reply as plain-text
// chunks. Errors after the stream starts cannot change the status code; the
// stream just ends, and the client re-fetches the transcript to see what
// was committed.
func (h *Handlers) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	username := auth.Username(r)
	conversationID := r.PathValue("id")

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.chatValidator.ValidateMessage(req.Message); err != nil {
		h.sendError(w, http.StatusBadRequest, "Message cannot be empty", err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.sendError(w, http.StatusInternalServerError, "Streaming not supported", nil)
		return
	}

	chunks, err := h.cfg.Chat.Stream(r.Context(), username, conversationID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			h.sendError(w, http.StatusNotFound, "Conversation not found", nil)
		case errors.Is(err, chat.ErrActiveGeneration):
			h.sendError(w, http.StatusConflict, "A generation is already in progress", err)
		default:
			logger.Log.WithError(err).Error("Error starting generation")
			h.sendError(w, http.StatusInternalServerError, "Error starting generation", err)
		}
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for chunk := range chunks {
		fmt.Fprint(w, chunk)
		flusher.Flush()
	}
}

// CancelHandler aborts the conversation's running generation.
func (h *Handlers) CancelHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.cfg.Chat.Cancel(auth.Username(r), r.PathValue("id")); err != nil {
		h.sendError(w, http.StatusNotFound, "No active generation for this conversation", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
