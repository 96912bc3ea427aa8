// Package handlers is the HTTP surface. Handlers decode and validate
// requests, call into stores and services, and map sentinel errors to
// status codes; business rules live below this layer.
package handlers

import (
	"encoding/json"
	"net/http"

	"ragchat/internal/app"
	"ragchat/internal/auth"
	"ragchat/internal/store"
	"ragchat/pkg/validation"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Handlers struct {
	cfg           *app.Config
	authValidator *validation.AuthRequestValidator
	chatValidator *validation.ChatRequestValidator
}

func New(cfg *app.Config) *Handlers {
	return &Handlers{
		cfg:           cfg,
		authValidator: validation.NewAuthRequestValidator(),
		chatValidator: validation.NewChatRequestValidator(),
	}
}

// sendError sends a standardized JSON error response
func (h *Handlers) sendError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errResp := ErrorResponse{
		Code:    status,
		Message: message,
	}
	if err != nil {
		errResp.Error = err.Error()
	}
	json.NewEncoder(w).Encode(errResp)
}

func (h *Handlers) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// currentUser loads the authenticated user's record from the store.
func (h *Handlers) currentUser(r *http.Request) (*store.User, error) {
	return h.cfg.Users.Get(auth.Username(r))
}

// HealthHandler reports liveness.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
