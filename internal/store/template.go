package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"ragchat/internal/logger"
)

// Template is a named, admin-managed system prompt. Names are sanitized on
// save, so the name doubles as the file name on disk.
type Template struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// TemplateStore is the injectable prompt-template collection.
type TemplateStore interface {
	Save(name, prompt string) (*Template, error)
	Get(name string) (*Template, error)
	List() []Template
	Delete(name string) error
}

// FileTemplateStore keeps templates in memory, one JSON file per template
// under <dataDir>/templates.
type FileTemplateStore struct {
	mu        sync.RWMutex
	dir       string
	templates map[string]*Template
}

var _ TemplateStore = (*FileTemplateStore)(nil)

// NewTemplateStore loads every template file from <dataDir>/templates,
// creating the directory if needed.
func NewTemplateStore(dataDir string) (*FileTemplateStore, error) {
	dir := filepath.Join(dataDir, "templates")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating templates directory: %w", err)
	}

	s := &FileTemplateStore{
		dir:       dir,
		templates: make(map[string]*Template),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading templates directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var tmpl Template
		path := filepath.Join(dir, entry.Name())
		if err := loadJSON(path, &tmpl); err != nil {
			logger.Log.WithError(err).WithField("path", path).Warn("Skipping unreadable template file")
			continue
		}
		s.templates[tmpl.Name] = &tmpl
	}

	return s, nil
}

// SanitizeTemplateName replaces everything outside [a-zA-Z0-9_-] with an
// underscore so template names are safe as file names.
func SanitizeTemplateName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

func (s *FileTemplateStore) Save(name, prompt string) (*Template, error) {
	safeName := SanitizeTemplateName(name)
	tmpl := &Template{Name: safeName, Prompt: prompt}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[safeName] = tmpl
	saveJSON(s.filePath(safeName), tmpl)

	out := *tmpl
	return &out, nil
}

func (s *FileTemplateStore) Get(name string) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tmpl, ok := s.templates[SanitizeTemplateName(name)]
	if !ok {
		return nil, ErrNotFound
	}
	out := *tmpl
	return &out, nil
}

func (s *FileTemplateStore) List() []Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Template, 0, len(s.templates))
	for _, tmpl := range s.templates {
		out = append(out, *tmpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *FileTemplateStore) Delete(name string) error {
	safeName := SanitizeTemplateName(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[safeName]; !ok {
		return ErrNotFound
	}
	delete(s.templates, safeName)
	if err := os.Remove(s.filePath(safeName)); err != nil && !os.IsNotExist(err) {
		logger.Log.WithError(err).WithField("template", safeName).Error("Failed to remove template file")
	}
	return nil
}

func (s *FileTemplateStore) filePath(name string) string {
	return filepath.Join(s.dir, name+".json")
}
