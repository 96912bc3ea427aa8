package chat

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrActiveGeneration means a generation is already running for the
	// user and conversation; at most one runs per pair.
	ErrActiveGeneration = errors.New("a generation is already in progress for this conversation")

	// ErrNoActiveGeneration means a cancel request found nothing to cancel.
	ErrNoActiveGeneration = errors.New("no active generation for this conversation")
)

// SessionManager tracks in-flight generations keyed by user and conversation
// so they can be rejected on overlap and cancelled on request. Generation
// contexts are rooted in context.Background: an upstream stall holds the
// slot until the user explicitly cancels, never a timeout.
type SessionManager struct {
	mu     sync.Mutex
	active map[string]context.CancelFunc
}

func NewSessionManager() *SessionManager {
	return &SessionManager{active: make(map[string]context.CancelFunc)}
}

func sessionKey(username, conversationID string) string {
	return username + "/" + conversationID
}

// Begin claims the generation slot and returns its cancellable context.
func (m *SessionManager) Begin(username, conversationID string) (context.Context, error) {
	key := sessionKey(username, conversationID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[key]; exists {
		return nil, ErrActiveGeneration
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.active[key] = cancel
	return ctx, nil
}

// End releases the slot and cancels its context. Safe to call after Cancel
// or for a slot that was already released.
func (m *SessionManager) End(username, conversationID string) {
	key := sessionKey(username, conversationID)

	m.mu.Lock()
	cancel, ok := m.active[key]
	if ok {
		delete(m.active, key)
	}
	m.mu.Unlock()

	if ok {
		cancel()
	}
}

// Cancel aborts a running generation. The slot stays claimed until the
// generation goroutine observes the cancellation and calls End, so a send
// racing with cancel still sees ErrActiveGeneration rather than starting a
// second stream.
func (m *SessionManager) Cancel(username, conversationID string) error {
	key := sessionKey(username, conversationID)

	m.mu.Lock()
	cancel, ok := m.active[key]
	m.mu.Unlock()

	if !ok {
		return ErrNoActiveGeneration
	}
	cancel()
	return nil
}
