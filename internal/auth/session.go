// Package auth issues and validates browser sessions. A session is an opaque
// server-side record; the cookie carries its ID inside a signed JWT so a
// forged or tampered cookie fails before the map lookup, and logout can
// revoke the record regardless of the token's own lifetime.
package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the session cookie set on login and cleared on logout.
const CookieName = "token"

var ErrInvalidSession = errors.New("invalid or expired session")

type session struct {
	username  string
	expiresAt time.Time
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionStore holds live sessions in memory. Sessions do not survive a
// restart; users log in again.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]session
	secret   []byte
	ttl      time.Duration
}

func NewSessionStore(secret []byte, ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]session),
		secret:   secret,
		ttl:      ttl,
	}
}

// Create opens a session for username and returns the signed cookie value.
func (s *SessionStore) Create(username string) (string, error) {
	id := uuid.New().String()
	now := time.Now()

	s.mu.Lock()
	s.sessions[id] = session{username: username, expiresAt: now.Add(s.ttl)}
	s.mu.Unlock()

	claims := sessionClaims{
		SessionID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Resolve maps a cookie value back to a username. Expired sessions are
// removed on the way out.
func (s *SessionStore) Resolve(cookieValue string) (string, error) {
	id, err := s.parseSessionID(cookieValue)
	if err != nil {
		return "", ErrInvalidSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return "", ErrInvalidSession
	}
	if time.Now().After(sess.expiresAt) {
		delete(s.sessions, id)
		return "", ErrInvalidSession
	}
	return sess.username, nil
}

// Destroy revokes the session behind a cookie value. Unknown or malformed
// values are ignored; logout must not fail.
func (s *SessionStore) Destroy(cookieValue string) {
	id, err := s.parseSessionID(cookieValue)
	if err != nil {
		return
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *SessionStore) parseSessionID(cookieValue string) (string, error) {
	token, err := jwt.ParseWithClaims(cookieValue, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return "", jwt.ErrSignatureInvalid
	}
	return claims.SessionID, nil
}
