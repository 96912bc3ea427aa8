// Package store implements the persisted collections backing the service:
// users, conversations, prompt templates, the base prompt, and the audit log.
// Each store is an in-memory map guarded by a mutex and rewritten to its JSON
// file after every mutation (write-through, last writer wins).
package store

import (
	"encoding/json"
	"errors"
	"os"

	"ragchat/internal/logger"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUserExists indicates a create collided with an existing username.
	ErrUserExists = errors.New("username already exists")
	// ErrInvalidCredentials indicates a failed password check.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// saveJSON rewrites path with the JSON encoding of v. Write failures are
// logged and swallowed: in-memory state stays authoritative until the next
// successful write.
func saveJSON(path string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Log.WithError(err).WithField("path", path).Error("Failed to encode state")
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Log.WithError(err).WithField("path", path).Error("Failed to persist state")
	}
}

// loadJSON decodes path into v. A missing file is not an error; the caller
// starts from its zero state.
func loadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, v)
}
