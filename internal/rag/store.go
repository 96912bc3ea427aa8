// Package rag holds the document embedding store and the cosine-similarity
// ranking used to build retrieval context for generation.
package rag

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ragchat/internal/logger"
)

// Document is one uploaded file with its embedding vector. Entries are never
// mutated in place; re-uploading a filename replaces the whole entry.
type Document struct {
	Filename  string    `json:"filename"`
	Content   string    `json:"content"`
	Embedding []float64 `json:"embedding"`
}

// Store is an ordered, persisted collection of documents. Ranking scans
// linearly; at the document counts this system targets, an index would be
// overkill.
type Store struct {
	mu   sync.RWMutex
	path string
	docs []Document
}

// NewStore loads embeddings.json from dataDir, starting empty if absent.
func NewStore(dataDir string) (*Store, error) {
	s := &Store{path: filepath.Join(dataDir, "embeddings.json")}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("error loading embeddings: %w", err)
	}
	if err := json.Unmarshal(data, &s.docs); err != nil {
		return nil, fmt.Errorf("error decoding embeddings: %w", err)
	}
	return s, nil
}

// persist rewrites embeddings.json. Failures are logged, not returned; the
// in-memory store stays authoritative until the next successful write.
func (s *Store) persist() {
	data, err := json.MarshalIndent(s.docs, "", "  ")
	if err != nil {
		logger.Log.WithError(err).Error("Failed to encode embeddings")
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		logger.Log.WithError(err).WithField("path", s.path).Error("Failed to persist embeddings")
	}
}

// Add stores a document. An existing entry with the same filename is
// replaced in place, keeping its position in the ranking-tiebreak order.
func (s *Store) Add(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.docs {
		if s.docs[i].Filename == doc.Filename {
			s.docs[i] = doc
			s.persist()
			return
		}
	}
	s.docs = append(s.docs, doc)
	s.persist()
}

// Remove deletes the entry with the given filename. Removing an absent
// filename is a no-op; the return value reports whether anything was removed.
func (s *Store) Remove(filename string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.docs {
		if s.docs[i].Filename == filename {
			s.docs = append(s.docs[:i], s.docs[i+1:]...)
			s.persist()
			return true
		}
	}
	return false
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = nil
	s.persist()
}

// Len reports the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Filenames lists stored filenames in insertion order.
func (s *Store) Filenames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.docs))
	for i, doc := range s.docs {
		names[i] = doc.Filename
	}
	return names
}
