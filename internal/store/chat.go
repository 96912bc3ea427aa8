package store

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Message is one transcript entry. Messages are appended in send order and
// never mutated after commit.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationSummary is the listing view of a conversation. The title is
// derived from the first message, not stored.
type ConversationSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

const (
	defaultTitle = "New Chat"
	titleRunes   = 30
)

// ChatStore is the injectable transcript collection: ordered messages per
// (user, conversation) pair, append-only except whole-conversation delete.
type ChatStore interface {
	Create(username string) (string, error)
	List(username string) []ConversationSummary
	Get(username, id string) ([]Message, error)
	Append(username, id string, msg Message) error
	Delete(username, id string) error
	DeleteAll(username string)
}

// FileChatStore keeps all transcripts in memory and rewrites chats.json
// after every mutation.
type FileChatStore struct {
	mu    sync.RWMutex
	path  string
	chats map[string]map[string][]Message
}

var _ ChatStore = (*FileChatStore)(nil)

// NewChatStore loads chats.json from dataDir, starting empty if absent.
func NewChatStore(dataDir string) (*FileChatStore, error) {
	s := &FileChatStore{
		path:  filepath.Join(dataDir, "chats.json"),
		chats: make(map[string]map[string][]Message),
	}
	if err := loadJSON(s.path, &s.chats); err != nil {
		return nil, fmt.Errorf("error loading chats: %w", err)
	}
	return s, nil
}

func (s *FileChatStore) Create(username string) (string, error) {
	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chats[username] == nil {
		s.chats[username] = make(map[string][]Message)
	}
	s.chats[username][id] = []Message{}
	saveJSON(s.path, s.chats)
	return id, nil
}

func (s *FileChatStore) List(username string) []ConversationSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summaries := make([]ConversationSummary, 0, len(s.chats[username]))
	for id, msgs := range s.chats[username] {
		summaries = append(summaries, ConversationSummary{ID: id, Title: deriveTitle(msgs)})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries
}

func (s *FileChatStore) Get(username, id string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs, ok := s.chats[username][id]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *FileChatStore) Append(username, id string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, ok := s.chats[username][id]
	if !ok {
		return ErrNotFound
	}
	s.chats[username][id] = append(msgs, msg)
	saveJSON(s.path, s.chats)
	return nil
}

func (s *FileChatStore) Delete(username, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[username][id]; !ok {
		return ErrNotFound
	}
	delete(s.chats[username], id)
	saveJSON(s.path, s.chats)
	return nil
}

func (s *FileChatStore) DeleteAll(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[username]; !ok {
		return
	}
	delete(s.chats, username)
	saveJSON(s.path, s.chats)
}

// deriveTitle takes the leading runes of the first message, so multi-byte
// characters are never cut mid-sequence.
func deriveTitle(msgs []Message) string {
	if len(msgs) == 0 {
		return defaultTitle
	}
	runes := []rune(msgs[0].Content)
	if len(runes) > titleRunes {
		runes = runes[:titleRunes]
	}
	return string(runes)
}
