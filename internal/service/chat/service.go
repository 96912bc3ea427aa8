// Package chat runs the message pipeline: persist the user turn, retrieve
// document context, assemble the prompt, stream the model's reply, and
// persist the assistant turn once the stream completes.
package chat

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"ragchat/internal/logger"
	"ragchat/internal/ollama"
	"ragchat/internal/prompt"
	"ragchat/internal/rag"
	"ragchat/internal/store"
)

// Inference is the slice of the model client the service needs.
type Inference interface {
	Embeddings(ctx context.Context, model, prompt string) ([]float64, error)
	Generate(ctx context.Context, model, prompt string) (<-chan ollama.StreamChunk, error)
}

// Service owns the send-message pipeline and generation lifecycle.
type Service struct {
	users        store.UserStore
	chats        store.ChatStore
	docs         *rag.Store
	prompts      *prompt.Resolver
	llm          Inference
	sessions     *SessionManager
	defaultModel string
	topK         int
}

func NewService(users store.UserStore, chats store.ChatStore, docs *rag.Store, prompts *prompt.Resolver, llm Inference, defaultModel string, topK int) *Service {
	return &Service{
		users:        users,
		chats:        chats,
		docs:         docs,
		prompts:      prompts,
		llm:          llm,
		sessions:     NewSessionManager(),
		defaultModel: defaultModel,
		topK:         topK,
	}
}

// Model returns the model a user's generations run on.
func (s *Service) Model(user *store.User) string {
	if user != nil && user.SelectedModel != "" {
		return user.SelectedModel
	}
	return s.defaultModel
}

// Stream runs one message turn and returns a channel of reply fragments.
// The user message is persisted before any upstream call, so it survives
// even if generation fails. The assistant message is persisted only when the
// stream completes cleanly; a cancelled or failed stream leaves no partial
// assistant turn. ctx covers the embedding call only — the generation itself
// is bound to the session and stops on explicit cancel, not client
// disconnect.
func (s *Service) Stream(ctx context.Context, username, conversationID, message string) (<-chan string, error) {
	user, err := s.users.Get(username)
	if err != nil {
		return nil, err
	}
	if _, err := s.chats.Get(username, conversationID); err != nil {
		return nil, err
	}

	// Claim the slot first: a send rejected for an active generation must
	// leave the transcript untouched.
	genCtx, err := s.sessions.Begin(username, conversationID)
	if err != nil {
		return nil, err
	}

	if err := s.chats.Append(username, conversationID, store.Message{Role: "user", Content: message}); err != nil {
		s.sessions.End(username, conversationID)
		return nil, err
	}
	history, err := s.chats.Get(username, conversationID)
	if err != nil {
		s.sessions.End(username, conversationID)
		return nil, err
	}

	model := s.Model(user)
	contextText := s.retrieveContext(ctx, model, message)
	fullPrompt := s.prompts.Build(user, contextText, history)

	chunks, err := s.llm.Generate(genCtx, model, fullPrompt)
	if err != nil {
		s.sessions.End(username, conversationID)
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"username":        username,
		"conversation_id": conversationID,
		"model":           model,
		"history_len":     len(history),
	}).Info("Generation started")

	out := make(chan string)

	go func() {
		defer close(out)
		defer s.sessions.End(username, conversationID)

		var reply strings.Builder
		failed := false

		for chunk := range chunks {
			if chunk.Err != nil {
				logger.Log.WithError(chunk.Err).WithField("conversation_id", conversationID).Error("Generation stream failed")
				failed = true
				break
			}
			reply.WriteString(chunk.Content)
			select {
			case out <- chunk.Content:
			case <-genCtx.Done():
			}
		}

		if failed || genCtx.Err() != nil {
			logger.Log.WithFields(logrus.Fields{
				"conversation_id": conversationID,
				"partial_chars":   reply.Len(),
			}).Info("Generation ended without commit")
			return
		}

		if err := s.chats.Append(username, conversationID, store.Message{Role: "assistant", Content: reply.String()}); err != nil {
			logger.Log.WithError(err).Error("Failed to save assistant message")
			return
		}
		logger.Log.WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"reply_chars":     reply.Len(),
		}).Info("Generation completed")
	}()

	return out, nil
}

// Cancel aborts the running generation for the user and conversation.
func (s *Service) Cancel(username, conversationID string) error {
	return s.sessions.Cancel(username, conversationID)
}

// retrieveContext embeds the query and joins the top matching documents.
// Retrieval is best-effort: an empty store or a failed embedding call
// degrades to an empty context rather than blocking the turn.
func (s *Service) retrieveContext(ctx context.Context, model, query string) string {
	if s.docs.Len() == 0 {
		return ""
	}

	vec, err := s.llm.Embeddings(ctx, model, query)
	if err != nil {
		logger.Log.WithError(err).Warn("Query embedding failed, answering without document context")
		return ""
	}

	ranked := s.docs.Rank(vec, s.topK)
	parts := make([]string, len(ranked))
	for i, doc := range ranked {
		parts[i] = doc.Content
	}
	return strings.Join(parts, "\n\n")
}
