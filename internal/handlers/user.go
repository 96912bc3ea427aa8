package handlers

import (
	"encoding/json"
	"net/http"

	"ragchat/internal/auth"
	"ragchat/internal/logger"
	"ragchat/internal/store"
)

type ModelsResponse struct {
	Models       []string `json:"models"`
	DefaultModel string   `json:"defaultModel"`
}

type SelectModelRequest struct {
	Model string `json:"model"`
}

type SelectTemplateRequest struct {
	Template string `json:"template"`
}

// ModelsHandler lists models from the inference server. When the server is
// unreachable it still answers 200 with just the default model, so the
// client always has something to select.
func (h *Handlers) ModelsHandler(w http.ResponseWriter, r *http.Request) {
	defaultModel := h.cfg.AppConfig.Ollama.DefaultModel

	models, err := h.cfg.LLM.Tags(r.Context())
	if err != nil {
		logger.Log.WithError(err).Warn("Model catalog unavailable, falling back to default")
		h.sendJSON(w, http.StatusOK, ModelsResponse{
			Models:       []string{defaultModel},
			DefaultModel: defaultModel,
		})
		return
	}

	h.sendJSON(w, http.StatusOK, ModelsResponse{Models: models, DefaultModel: defaultModel})
}

// SelectModelHandler stores the user's model choice.
func (h *Handlers) SelectModelHandler(w http.ResponseWriter, r *http.Request) {
	var req SelectModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	username := auth.Username(r)
	if err := h.cfg.Users.SetModel(username, req.Model); err != nil {
		h.sendError(w, http.StatusNotFound, "User not found", err)
		return
	}

	logger.Log.WithField("username", username).WithField("model", req.Model).Info("Model selected")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// SelectTemplateHandler stores the user's prompt template choice. An empty
// template clears the selection back to the base prompt. A selection that
// later disappears degrades silently at generation time, so existence is not
// enforced here.
func (h *Handlers) SelectTemplateHandler(w http.ResponseWriter, r *http.Request) {
	var req SelectTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	name := req.Template
	if name != "" {
		name = store.SanitizeTemplateName(name)
	}

	username := auth.Username(r)
	if err := h.cfg.Users.SetTemplate(username, name); err != nil {
		h.sendError(w, http.StatusNotFound, "User not found", err)
		return
	}

	logger.Log.WithField("username", username).WithField("template", name).Info("Prompt template selected")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
