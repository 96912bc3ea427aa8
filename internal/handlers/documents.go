package handlers

import (
	"io"
	"net/http"

	"ragchat/internal/auth"
	"ragchat/internal/logger"
	"ragchat/internal/rag"
	"ragchat/internal/store"
)

// maxUploadBytes caps a document upload; documents feed prompts verbatim,
// so anything bigger than this would blow the model's context anyway.
const maxUploadBytes = 10 << 20

type DocumentsResponse struct {
	Documents []string `json:"documents"`
}

// ListDocumentsHandler returns the filenames in the retrieval store.
func (h *Handlers) ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, DocumentsResponse{Documents: h.cfg.Docs.Filenames()})
}

// UploadDocumentHandler ingests one uploaded file: read, embed, store. The
// embedding is synchronous and the operation is atomic — if the inference
// server rejects the embedding call, nothing is stored and the upload fails.
// Re-uploading an existing filename replaces the stored document.
func (h *Handlers) UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "Missing file field", err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "Error reading uploaded file", err)
		return
	}
	if len(content) == 0 {
		h.sendError(w, http.StatusBadRequest, "Uploaded file is empty", nil)
		return
	}

	user, err := h.currentUser(r)
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "Invalid or expired session", nil)
		return
	}
	model := h.cfg.Chat.Model(user)

	vec, err := h.cfg.LLM.Embeddings(r.Context(), model, string(content))
	if err != nil {
		logger.Log.WithError(err).WithField("filename", header.Filename).Error("Document embedding failed")
		h.sendError(w, http.StatusInternalServerError, "Error embedding document", err)
		return
	}

	h.cfg.Docs.Add(rag.Document{
		Filename:  header.Filename,
		Content:   string(content),
		Embedding: vec,
	})
	h.cfg.Audit.Add(store.ActionUploadDocument, auth.Username(r), map[string]string{"filename": header.Filename})

	logger.Log.WithField("filename", header.Filename).Info("Document ingested")
	h.sendJSON(w, http.StatusOK, DocumentsResponse{Documents: h.cfg.Docs.Filenames()})
}

// DeleteDocumentHandler removes one document from the retrieval store.
func (h *Handlers) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")

	if !h.cfg.Docs.Remove(filename) {
		h.sendError(w, http.StatusNotFound, "Document not found", nil)
		return
	}

	h.cfg.Audit.Add(store.ActionDeleteDocument, auth.Username(r), map[string]string{"filename": filename})
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// ResetDocumentsHandler clears the entire retrieval store.
func (h *Handlers) ResetDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	h.cfg.Docs.Clear()
	h.cfg.Audit.Add(store.ActionResetEmbeddings, auth.Username(r), nil)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
