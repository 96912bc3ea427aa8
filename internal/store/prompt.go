package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ragchat/internal/logger"
)

// DefaultSystemPrompt is used until an admin sets a base prompt.
const DefaultSystemPrompt = "You are a helpful assistant. When relevant documents are provided, " +
	"ground your answers in them; otherwise answer from general knowledge and say so."

// PromptStore holds the process-wide base system prompt.
type PromptStore interface {
	Get() string
	Set(prompt string)
}

// FilePromptStore persists the base prompt as raw text in prompt.json.
type FilePromptStore struct {
	mu     sync.RWMutex
	path   string
	prompt string
}

var _ PromptStore = (*FilePromptStore)(nil)

// NewPromptStore loads the base prompt from dataDir, falling back to
// DefaultSystemPrompt if no file exists.
func NewPromptStore(dataDir string) (*FilePromptStore, error) {
	s := &FilePromptStore{
		path:   filepath.Join(dataDir, "prompt.json"),
		prompt: DefaultSystemPrompt,
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading prompt: %w", err)
		}
		return s, nil
	}
	if len(data) > 0 {
		s.prompt = string(data)
	}
	return s, nil
}

func (s *FilePromptStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompt
}

func (s *FilePromptStore) Set(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = prompt
	if err := os.WriteFile(s.path, []byte(prompt), 0o644); err != nil {
		logger.Log.WithError(err).WithField("path", s.path).Error("Failed to persist prompt")
	}
}
