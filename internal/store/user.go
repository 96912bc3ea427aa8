package store

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"ragchat/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a persisted account. The username is the map key, so it is not
// serialized inside the record.
type User struct {
	Username         string `json:"-"`
	PasswordHash     string `json:"password_hash"`
	Role             string `json:"role"`
	SelectedModel    string `json:"selected_model,omitempty"`
	SelectedTemplate string `json:"selected_template,omitempty"`
}

// VerifyPassword checks a plaintext password against the stored hash.
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// UserStore is the injectable user collection.
type UserStore interface {
	Get(username string) (*User, error)
	List() []string
	Create(username, password, role string) (*User, error)
	Delete(username string) error
	SetPassword(username, password string) error
	SetModel(username, model string) error
	SetTemplate(username, template string) error
	Authenticate(username, password string) (*User, error)
}

// FileUserStore keeps users in memory and rewrites users.json after every
// mutation.
type FileUserStore struct {
	mu    sync.RWMutex
	path  string
	users map[string]*User
}

var _ UserStore = (*FileUserStore)(nil)

// NewUserStore loads users.json from dataDir, starting empty if absent.
func NewUserStore(dataDir string) (*FileUserStore, error) {
	s := &FileUserStore{
		path:  filepath.Join(dataDir, "users.json"),
		users: make(map[string]*User),
	}
	if err := loadJSON(s.path, &s.users); err != nil {
		return nil, fmt.Errorf("error loading users: %w", err)
	}
	return s, nil
}

// Len reports the number of stored users. Used for first-run admin seeding.
func (s *FileUserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *FileUserStore) Get(username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	out.Username = username
	return &out, nil
}

func (s *FileUserStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.users))
	for name := range s.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *FileUserStore) Create(username, password, role string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return nil, ErrUserExists
	}
	u := &User{PasswordHash: string(hash), Role: role}
	s.users[username] = u
	saveJSON(s.path, s.users)

	logger.Log.WithField("username", username).Info("Created new user")

	out := *u
	out.Username = username
	return &out, nil
}

func (s *FileUserStore) Delete(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return ErrNotFound
	}
	delete(s.users, username)
	saveJSON(s.path, s.users)
	return nil
}

func (s *FileUserStore) SetPassword(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = string(hash)
	saveJSON(s.path, s.users)
	return nil
}

func (s *FileUserStore) SetModel(username, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return ErrNotFound
	}
	u.SelectedModel = model
	saveJSON(s.path, s.users)
	return nil
}

func (s *FileUserStore) SetTemplate(username, template string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return ErrNotFound
	}
	u.SelectedTemplate = template
	saveJSON(s.path, s.users)
	return nil
}

func (s *FileUserStore) Authenticate(username, password string) (*User, error) {
	u, err := s.Get(username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.VerifyPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
