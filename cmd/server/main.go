package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"ragchat/internal/app"
	"ragchat/internal/auth"
	"ragchat/internal/config"
	"ragchat/internal/handlers"
	"ragchat/internal/logger"
	"ragchat/internal/ollama"
	"ragchat/internal/prompt"
	"ragchat/internal/rag"
	"ragchat/internal/service/chat"
	"ragchat/internal/store"
)

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// seedAdmin creates the bootstrap admin account on an empty user store so a
// fresh deployment is reachable without hand-editing users.json.
func seedAdmin(users *store.FileUserStore) {
	if users.Len() > 0 {
		return
	}

	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin"
	}

	if _, err := users.Create(username, password, store.RoleAdmin); err != nil {
		logger.Log.WithError(err).Fatal("Failed to seed admin user")
	}
	logger.Log.WithField("username", username).Info("Seeded admin user")
}

func main() {
	// Missing .env is fine; the environment may be set by the deployment.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		logger.Log.WithError(err).WithField("dir", cfg.Storage.DataDir).Fatal("Failed to create data directory")
	}

	users, err := store.NewUserStore(cfg.Storage.DataDir)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load user store")
	}
	seedAdmin(users)

	chats, err := store.NewChatStore(cfg.Storage.DataDir)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load chat store")
	}
	templates, err := store.NewTemplateStore(cfg.Storage.DataDir)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load template store")
	}
	prompts, err := store.NewPromptStore(cfg.Storage.DataDir)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load prompt store")
	}
	audit, err := store.NewAuditStore(cfg.Storage.DataDir)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load audit store")
	}
	docs, err := rag.NewStore(cfg.Storage.DataDir)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load embedding store")
	}

	llm := ollama.NewClient(cfg.Ollama.BaseURL)
	sessions := auth.NewSessionStore(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiration)
	guard := auth.NewGuard(sessions, users)
	resolver := prompt.NewResolver(prompts, templates)
	chatService := chat.NewService(users, chats, docs, resolver, llm, cfg.Ollama.DefaultModel, cfg.Retrieval.TopK)

	h := handlers.New(&app.Config{
		AppConfig: cfg,
		Users:     users,
		Chats:     chats,
		Templates: templates,
		Prompts:   prompts,
		Audit:     audit,
		Docs:      docs,
		Sessions:  sessions,
		Guard:     guard,
		LLM:       llm,
		Chat:      chatService,
	})

	mux := http.NewServeMux()

	corsHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.WriteHeader(http.StatusOK)
	}
	handle := func(pattern string, handler http.HandlerFunc) {
		mux.HandleFunc(pattern, enableCORS(handler))
	}
	options := func(path string) {
		mux.HandleFunc("OPTIONS "+path, corsHandler)
	}

	// Public routes
	handle("POST /api/login", h.LoginHandler)
	options("/api/login")
	handle("GET /api/health", h.HealthHandler)
	options("/api/health")
	handle("GET /api/models", h.ModelsHandler)
	options("/api/models")

	// Authenticated routes
	handle("POST /api/logout", guard.RequireUser(h.LogoutHandler))
	options("/api/logout")
	handle("GET /api/user", guard.RequireUser(h.CurrentUserHandler))
	options("/api/user")
	handle("POST /api/user/model", guard.RequireUser(h.SelectModelHandler))
	options("/api/user/model")
	handle("POST /api/user/prompt-template", guard.RequireUser(h.SelectTemplateHandler))
	options("/api/user/prompt-template")

	handle("GET /api/chats", guard.RequireUser(h.ListChatsHandler))
	handle("POST /api/chats", guard.RequireUser(h.CreateChatHandler))
	options("/api/chats")
	handle("GET /api/chats/{id}", guard.RequireUser(h.GetChatHandler))
	handle("DELETE /api/chats/{id}", guard.RequireUser(h.DeleteChatHandler))
	options("/api/chats/{id}")
	handle("POST /api/chats/{id}/message", guard.RequireUser(h.SendMessageHandler))
	options("/api/chats/{id}/message")
	handle("POST /api/chats/{id}/cancel", guard.RequireUser(h.CancelHandler))
	options("/api/chats/{id}/cancel")

	// Admin routes
	handle("GET /api/admin/prompt", guard.RequireAdmin(h.GetPromptHandler))
	handle("POST /api/admin/prompt", guard.RequireAdmin(h.UpdatePromptHandler))
	options("/api/admin/prompt")
	handle("GET /api/admin/templates", guard.RequireAdmin(h.ListTemplatesHandler))
	handle("POST /api/admin/templates", guard.RequireAdmin(h.SaveTemplateHandler))
	options("/api/admin/templates")
	handle("DELETE /api/admin/templates/{name}", guard.RequireAdmin(h.DeleteTemplateHandler))
	options("/api/admin/templates/{name}")
	handle("GET /api/users", guard.RequireAdmin(h.ListUsersHandler))
	handle("POST /api/users", guard.RequireAdmin(h.CreateUserHandler))
	options("/api/users")
	handle("DELETE /api/users/{username}", guard.RequireAdmin(h.DeleteUserHandler))
	options("/api/users/{username}")
	handle("POST /api/users/{username}/password", guard.RequireAdmin(h.ChangePasswordHandler))
	options("/api/users/{username}/password")
	handle("GET /api/admin/documents", guard.RequireAdmin(h.ListDocumentsHandler))
	handle("POST /api/admin/documents", guard.RequireAdmin(h.UploadDocumentHandler))
	handle("DELETE /api/admin/documents", guard.RequireAdmin(h.ResetDocumentsHandler))
	options("/api/admin/documents")
	handle("DELETE /api/admin/documents/{filename}", guard.RequireAdmin(h.DeleteDocumentHandler))
	options("/api/admin/documents/{filename}")
	handle("GET /api/admin/logs", guard.RequireAdmin(h.LogsHandler))
	options("/api/admin/logs")

	logger.Log.WithField("port", cfg.Server.Port).Info("Server starting")
	if err := http.ListenAndServe(":"+cfg.Server.Port, mux); err != nil {
		logger.Log.WithError(err).Fatal("Server failed to start")
	}
}
