package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"ragchat/internal/auth"
	"ragchat/internal/logger"
	"ragchat/internal/store"
)

type PromptResponse struct {
	Prompt string `json:"prompt"`
}

type UpdatePromptRequest struct {
	Prompt string `json:"prompt"`
}

type SaveTemplateRequest struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

type TemplatesResponse struct {
	Templates []store.Template `json:"templates"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type ChangePasswordRequest struct {
	Password string `json:"password"`
}

type UserInfo struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type UsersResponse struct {
	Users []UserInfo `json:"users"`
}

type LogsResponse struct {
	Logs []store.AuditEntry `json:"logs"`
}

// GetPromptHandler returns the base system prompt.
func (h *Handlers) GetPromptHandler(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, PromptResponse{Prompt: h.cfg.Prompts.Get()})
}

// UpdatePromptHandler replaces the base system prompt.
func (h *Handlers) UpdatePromptHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdatePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Prompt == "" {
		h.sendError(w, http.StatusBadRequest, "Prompt cannot be empty", nil)
		return
	}

	h.cfg.Prompts.Set(req.Prompt)
	h.cfg.Audit.Add(store.ActionUpdatePrompt, auth.Username(r), nil)

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// ListTemplatesHandler returns all saved prompt templates.
func (h *Handlers) ListTemplatesHandler(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, TemplatesResponse{Templates: h.cfg.Templates.List()})
}

// SaveTemplateHandler creates or overwrites a prompt template. The name is
// sanitized to a filesystem-safe form; the sanitized name is what users
// select by.
func (h *Handlers) SaveTemplateHandler(w http.ResponseWriter, r *http.Request) {
	var req SaveTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.chatValidator.ValidateTemplate(req.Name, req.Prompt); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid template", err)
		return
	}

	name := store.SanitizeTemplateName(req.Name)
	tmpl, err := h.cfg.Templates.Save(name, req.Prompt)
	if err != nil {
		logger.Log.WithError(err).Error("Error saving template")
		h.sendError(w, http.StatusInternalServerError, "Error saving template", err)
		return
	}
	h.cfg.Audit.Add(store.ActionSaveTemplate, auth.Username(r), map[string]string{"name": name})

	h.sendJSON(w, http.StatusOK, tmpl)
}

// DeleteTemplateHandler removes a prompt template. Users who had it selected
// fall back to the base prompt on their next message.
func (h *Handlers) DeleteTemplateHandler(w http.ResponseWriter, r *http.Request) {
	name := store.SanitizeTemplateName(r.PathValue("name"))

	if err := h.cfg.Templates.Delete(name); err != nil {
		h.sendError(w, http.StatusNotFound, "Template not found", nil)
		return
	}
	h.cfg.Audit.Add(store.ActionDeleteTemplate, auth.Username(r), map[string]string{"name": name})

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// ListUsersHandler returns all accounts without credential material.
func (h *Handlers) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	usernames := h.cfg.Users.List()
	infos := make([]UserInfo, 0, len(usernames))
	for _, username := range usernames {
		user, err := h.cfg.Users.Get(username)
		if err != nil {
			continue
		}
		infos = append(infos, UserInfo{Username: username, Role: user.Role})
	}
	h.sendJSON(w, http.StatusOK, UsersResponse{Users: infos})
}

// CreateUserHandler creates an account.
func (h *Handlers) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Role == "" {
		req.Role = store.RoleUser
	}
	if err := h.authValidator.ValidateCreateUserRequest(req.Username, req.Password, req.Role); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid user", err)
		return
	}

	if _, err := h.cfg.Users.Create(req.Username, req.Password, req.Role); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			h.sendError(w, http.StatusBadRequest, "Username already exists", err)
			return
		}
		logger.Log.WithError(err).Error("Error creating user")
		h.sendError(w, http.StatusInternalServerError, "Error creating user", err)
		return
	}

	h.cfg.Audit.Add(store.ActionCreateUser, auth.Username(r), map[string]string{"username": req.Username, "role": req.Role})
	h.sendJSON(w, http.StatusCreated, UserInfo{Username: req.Username, Role: req.Role})
}

// DeleteUserHandler removes an account and its conversations. The admin
// cannot delete their own account while logged into it.
func (h *Handlers) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if username == auth.Username(r) {
		h.sendError(w, http.StatusBadRequest, "Cannot delete your own account", nil)
		return
	}

	if err := h.cfg.Users.Delete(username); err != nil {
		h.sendError(w, http.StatusNotFound, "User not found", err)
		return
	}
	h.cfg.Chats.DeleteAll(username)

	h.cfg.Audit.Add(store.ActionDeleteUser, auth.Username(r), map[string]string{"username": username})
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// ChangePasswordHandler resets another account's password.
func (h *Handlers) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.authValidator.ValidatePassword(req.Password); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid password", err)
		return
	}

	if err := h.cfg.Users.SetPassword(username, req.Password); err != nil {
		h.sendError(w, http.StatusNotFound, "User not found", err)
		return
	}

	h.cfg.Audit.Add(store.ActionChangePassword, auth.Username(r), map[string]string{"username": username})
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// LogsHandler returns the admin audit log.
func (h *Handlers) LogsHandler(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, LogsResponse{Logs: h.cfg.Audit.List()})
}
