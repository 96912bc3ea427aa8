package handlers

import (
	"encoding/json"
	"net/http"

	"ragchat/internal/auth"
	"ragchat/internal/logger"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UserResponse struct {
	Username         string `json:"username"`
	Role             string `json:"role"`
	SelectedModel    string `json:"selectedModel,omitempty"`
	SelectedTemplate string `json:"selectedPromptTemplate,omitempty"`
}

// LoginHandler authenticates the user and sets the session cookie.
func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.authValidator.ValidateLoginRequest(req.Username, req.Password); err != nil {
		h.sendError(w, http.StatusBadRequest, "Username and password are required", err)
		return
	}

	user, err := h.cfg.Users.Authenticate(req.Username, req.Password)
	if err != nil {
		logger.Log.WithField("username", req.Username).Warn("Login failed")
		h.sendError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	cookieValue, err := h.cfg.Sessions.Create(req.Username)
	if err != nil {
		logger.Log.WithError(err).Error("Error creating session")
		h.sendError(w, http.StatusInternalServerError, "Error creating session", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    cookieValue,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	logger.Log.WithField("username", req.Username).Info("User logged in")
	h.sendJSON(w, http.StatusOK, UserResponse{
		Username:         req.Username,
		Role:             user.Role,
		SelectedModel:    user.SelectedModel,
		SelectedTemplate: user.SelectedTemplate,
	})
}

// LogoutHandler revokes the session and clears the cookie.
func (h *Handlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		h.cfg.Sessions.Destroy(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	logger.Log.WithField("username", auth.Username(r)).Info("User logged out")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// CurrentUserHandler returns the authenticated user's profile and settings.
func (h *Handlers) CurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "Invalid or expired session", nil)
		return
	}

	h.sendJSON(w, http.StatusOK, UserResponse{
		Username:         auth.Username(r),
		Role:             user.Role,
		SelectedModel:    user.SelectedModel,
		SelectedTemplate: user.SelectedTemplate,
	})
}
