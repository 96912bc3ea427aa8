package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"ragchat/internal/logger"
	"ragchat/internal/store"
)

type contextKey string

const UserContextKey contextKey = "user"

// Username returns the authenticated username injected by RequireUser.
func Username(r *http.Request) string {
	username, _ := r.Context().Value(UserContextKey).(string)
	return username
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Code: status, Message: message})
}

// Guard wires session resolution and role checks into handler chains.
type Guard struct {
	Sessions *SessionStore
	Users    store.UserStore
}

func NewGuard(sessions *SessionStore, users store.UserStore) *Guard {
	return &Guard{Sessions: sessions, Users: users}
}

// RequireUser rejects requests without a valid session cookie and injects
// the username into the request context.
func (g *Guard) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil {
			sendError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		username, err := g.Sessions.Resolve(cookie.Value)
		if err != nil {
			sendError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// RequireAdmin is RequireUser plus an admin role check against the user
// store. The role is read per request, so a demoted admin loses access
// without needing to log out.
func (g *Guard) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return g.RequireUser(func(w http.ResponseWriter, r *http.Request) {
		username := Username(r)
		user, err := g.Users.Get(username)
		if err != nil {
			logger.Log.WithField("username", username).Warn("Session for unknown user")
			sendError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}
		if user.Role != store.RoleAdmin {
			sendError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
