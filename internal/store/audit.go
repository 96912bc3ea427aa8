package store

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"
)

// Audit log actions.
const (
	ActionUpdatePrompt    = "UPDATE_PROMPT"
	ActionChangePassword  = "CHANGE_PASSWORD"
	ActionUploadDocument  = "UPLOAD_DOCUMENT"
	ActionDeleteDocument  = "DELETE_DOCUMENT"
	ActionResetEmbeddings = "RESET_EMBEDDINGS"
	ActionCreateUser      = "CREATE_USER"
	ActionDeleteUser      = "DELETE_USER"
	ActionSaveTemplate    = "SAVE_TEMPLATE"
	ActionDeleteTemplate  = "DELETE_TEMPLATE"
)

// AuditEntry is one append-only audit record.
type AuditEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	Username  string            `json:"username"`
	Details   map[string]string `json:"details,omitempty"`
}

// AuditStore records admin and document actions.
type AuditStore interface {
	Add(action, username string, details map[string]string)
	List() []AuditEntry
}

// FileAuditStore appends entries in memory and rewrites logs.json after
// every addition.
type FileAuditStore struct {
	mu      sync.RWMutex
	path    string
	entries []AuditEntry
}

var _ AuditStore = (*FileAuditStore)(nil)

// NewAuditStore loads logs.json from dataDir, starting empty if absent.
func NewAuditStore(dataDir string) (*FileAuditStore, error) {
	s := &FileAuditStore{path: filepath.Join(dataDir, "logs.json")}
	if err := loadJSON(s.path, &s.entries); err != nil {
		return nil, fmt.Errorf("error loading audit log: %w", err)
	}
	return s, nil
}

func (s *FileAuditStore) Add(action, username string, details map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, AuditEntry{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Username:  username,
		Details:   details,
	})
	saveJSON(s.path, s.entries)
}

func (s *FileAuditStore) List() []AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
