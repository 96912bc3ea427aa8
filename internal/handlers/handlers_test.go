package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ragchat/internal/app"
	"ragchat/internal/auth"
	"ragchat/internal/config"
	"ragchat/internal/ollama"
	"ragchat/internal/prompt"
	"ragchat/internal/rag"
	"ragchat/internal/service/chat"
	"ragchat/internal/store"
	"ragchat/internal/testutil"
)

// newTestApp wires real file stores in a temp dir against a fake inference
// server and returns a mux with the same routes the server registers.
func newTestApp(t *testing.T, fake *testutil.FakeOllama) (*http.ServeMux, *app.Config) {
	t.Helper()
	dir := t.TempDir()

	users, err := store.NewUserStore(dir)
	if err != nil {
		t.Fatalf("NewUserStore: %v", err)
	}
	chats, err := store.NewChatStore(dir)
	if err != nil {
		t.Fatalf("NewChatStore: %v", err)
	}
	templates, err := store.NewTemplateStore(dir)
	if err != nil {
		t.Fatalf("NewTemplateStore: %v", err)
	}
	prompts, err := store.NewPromptStore(dir)
	if err != nil {
		t.Fatalf("NewPromptStore: %v", err)
	}
	audit, err := store.NewAuditStore(dir)
	if err != nil {
		t.Fatalf("NewAuditStore: %v", err)
	}
	docs, err := rag.NewStore(dir)
	if err != nil {
		t.Fatalf("rag.NewStore: %v", err)
	}

	if _, err := users.Create("admin", "adminpass", store.RoleAdmin); err != nil {
		t.Fatalf("Create admin: %v", err)
	}
	if _, err := users.Create("alice", "secret123", store.RoleUser); err != nil {
		t.Fatalf("Create user: %v", err)
	}

	srv := fake.Server()
	t.Cleanup(srv.Close)

	cfg := &config.AppConfig{
		Ollama: config.OllamaConfig{BaseURL: srv.URL, DefaultModel: "llama3:latest"},
		Auth: config.AuthConfig{
			JWTSecret:       []byte("0123456789abcdef0123456789abcdef"),
			TokenExpiration: time.Hour,
		},
		Retrieval: config.RetrievalConfig{TopK: 3},
	}

	llm := ollama.NewClient(srv.URL)
	sessions := auth.NewSessionStore(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiration)
	guard := auth.NewGuard(sessions, users)

	appCfg := &app.Config{
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
		Chat:      chat.NewService(users, chats, docs, prompt.NewResolver(prompts, templates), llm, cfg.Ollama.DefaultModel, cfg.Retrieval.TopK),
	}
	h := New(appCfg)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", h.LoginHandler)
	mux.HandleFunc("POST /api/logout", guard.RequireUser(h.LogoutHandler))
	mux.HandleFunc("GET /api/user", guard.RequireUser(h.CurrentUserHandler))
	mux.HandleFunc("GET /api/models", h.ModelsHandler)
	mux.HandleFunc("GET /api/chats", guard.RequireUser(h.ListChatsHandler))
	mux.HandleFunc("POST /api/chats", guard.RequireUser(h.CreateChatHandler))
	mux.HandleFunc("GET /api/chats/{id}", guard.RequireUser(h.GetChatHandler))
	mux.HandleFunc("POST /api/chats/{id}/message", guard.RequireUser(h.SendMessageHandler))
	mux.HandleFunc("POST /api/chats/{id}/cancel", guard.RequireUser(h.CancelHandler))
	mux.HandleFunc("GET /api/admin/documents", guard.RequireAdmin(h.ListDocumentsHandler))
	mux.HandleFunc("POST /api/admin/documents", guard.RequireAdmin(h.UploadDocumentHandler))
	mux.HandleFunc("DELETE /api/admin/documents/{filename}", guard.RequireAdmin(h.DeleteDocumentHandler))
	mux.HandleFunc("GET /api/admin/logs", guard.RequireAdmin(h.LogsHandler))
	return mux, appCfg
}

func login(t *testing.T, mux *http.ServeMux, username, password string) *http.Cookie {
	t.Helper()
	body, _ := json.Marshal(LoginRequest{Username: username, Password: password})
	r := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatal("login response did not set the session cookie")
	return nil
}

func do(mux *http.ServeMux, method, path string, cookie *http.Cookie, body io.Reader) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, body)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		r.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func TestLoginFlow(t *testing.T) {
	mux, _ := newTestApp(t, &testutil.FakeOllama{})

	cookie := login(t, mux, "alice", "secret123")

	w := do(mux, http.MethodGet, "/api/user", cookie, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/user status = %d", w.Code)
	}
	var user UserResponse
	if err := json.Unmarshal(w.Body.Bytes(), &user); err != nil {
		t.Fatalf("decoding user: %v", err)
	}
	if user.Username != "alice" || user.Role != store.RoleUser {
		t.Errorf("user = %+v, want alice/user", user)
	}

	// Logout revokes the session.
	if w := do(mux, http.MethodPost, "/api/logout", cookie, nil); w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}
	if w := do(mux, http.MethodGet, "/api/user", cookie, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/user after logout status = %d, want 401", w.Code)
	}
}

func TestLogin_BadPassword(t *testing.T) {
	mux, _ := newTestApp(t, &testutil.FakeOllama{})

	body, _ := json.Marshal(LoginRequest{Username: "alice", Password: "wrong"})
	w := do(mux, http.MethodPost, "/api/login", nil, bytes.NewReader(body))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("login with bad password status = %d, want 401", w.Code)
	}
}

func TestAdminRoutes_RequireAdminRole(t *testing.T) {
	mux, _ := newTestApp(t, &testutil.FakeOllama{})

	aliceCookie := login(t, mux, "alice", "secret123")
	if w := do(mux, http.MethodGet, "/api/admin/logs", aliceCookie, nil); w.Code != http.StatusForbidden {
		t.Errorf("admin route as user status = %d, want 403", w.Code)
	}
	if w := do(mux, http.MethodGet, "/api/admin/logs", nil, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("admin route unauthenticated status = %d, want 401", w.Code)
	}

	adminCookie := login(t, mux, "admin", "adminpass")
	if w := do(mux, http.MethodGet, "/api/admin/logs", adminCookie, nil); w.Code != http.StatusOK {
		t.Errorf("admin route as admin status = %d, want 200", w.Code)
	}
}

func TestModels_FallsBackWhenUpstreamDown(t *testing.T) {
	mux, _ := newTestApp(t, &testutil.FakeOllama{FailTags: true})

	// The catalog is public and never errors out, even without a session.
	w := do(mux, http.MethodGet, "/api/models", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/models status = %d, want 200 even when upstream is down", w.Code)
	}
	var resp ModelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding models: %v", err)
	}
	if len(resp.Models) != 1 || resp.Models[0] != "llama3:latest" || resp.DefaultModel != "llama3:latest" {
		t.Errorf("fallback models = %+v", resp)
	}
}

func TestDocuments_UploadRoundTrip(t *testing.T) {
	mux, appCfg := newTestApp(t, &testutil.FakeOllama{Embedding: []float64{0.1, 0.2}})
	cookie := login(t, mux, "admin", "adminpass")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "notes.txt")
	part.Write([]byte("important facts"))
	mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/api/admin/documents", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	r.AddCookie(cookie)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", w.Code, w.Body.String())
	}
	if appCfg.Docs.Len() != 1 {
		t.Fatalf("document store size = %d after upload, want 1", appCfg.Docs.Len())
	}

	list := do(mux, http.MethodGet, "/api/admin/documents", cookie, nil)
	if !strings.Contains(list.Body.String(), "notes.txt") {
		t.Errorf("document listing = %s, want notes.txt", list.Body.String())
	}

	del := do(mux, http.MethodDelete, "/api/admin/documents/notes.txt", cookie, nil)
	if del.Code != http.StatusOK {
		t.Fatalf("delete status = %d", del.Code)
	}
	if appCfg.Docs.Len() != 0 {
		t.Errorf("document store size = %d after delete, want 0", appCfg.Docs.Len())
	}
	if again := do(mux, http.MethodDelete, "/api/admin/documents/notes.txt", cookie, nil); again.Code != http.StatusNotFound {
		t.Errorf("double delete status = %d, want 404", again.Code)
	}
}

func TestDocuments_UploadAtomicOnEmbeddingFailure(t *testing.T) {
	mux, appCfg := newTestApp(t, &testutil.FakeOllama{FailEmbeddings: true})
	cookie := login(t, mux, "admin", "adminpass")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "notes.txt")
	part.Write([]byte("important facts"))
	mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/api/admin/documents", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	r.AddCookie(cookie)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("upload status = %d, want 500 when embedding fails", w.Code)
	}
	if appCfg.Docs.Len() != 0 {
		t.Errorf("document store size = %d after failed upload, want 0", appCfg.Docs.Len())
	}
}

func TestSendMessage_StreamsAndCommits(t *testing.T) {
	mux, appCfg := newTestApp(t, &testutil.FakeOllama{
		Lines: []string{
			`{"response":"Hi","done":false}`,
			`{"response":" there","done":false}`,
			`{"response":"","done":true}`,
		},
	})
	cookie := login(t, mux, "alice", "secret123")

	created := do(mux, http.MethodPost, "/api/chats", cookie, nil)
	if created.Code != http.StatusCreated {
		t.Fatalf("create chat status = %d", created.Code)
	}
	var chatResp CreateChatResponse
	if err := json.Unmarshal(created.Body.Bytes(), &chatResp); err != nil {
		t.Fatalf("decoding chat: %v", err)
	}

	body, _ := json.Marshal(SendMessageRequest{Message: "hello"})
	w := do(mux, http.MethodPost, "/api/chats/"+chatResp.ID+"/message", cookie, bytes.NewReader(body))
	if w.Code != http.StatusOK {
		t.Fatalf("send status = %d: %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != "Hi there" {
		t.Errorf("streamed body = %q, want %q", got, "Hi there")
	}

	// Committed transcript holds both turns once the stream has ended.
	deadline := time.Now().Add(2 * time.Second)
	for {
		msgs, err := appCfg.Chats.Get("alice", chatResp.ID)
		if err != nil {
			t.Fatalf("Get transcript: %v", err)
		}
		if len(msgs) == 2 {
			if msgs[0].Content != "hello" || msgs[1].Content != "Hi there" {
				t.Errorf("transcript = %+v", msgs)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("transcript = %+v, want 2 messages", msgs)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSendMessage_UnknownConversation(t *testing.T) {
	mux, _ := newTestApp(t, &testutil.FakeOllama{})
	cookie := login(t, mux, "alice", "secret123")

	body, _ := json.Marshal(SendMessageRequest{Message: "hello"})
	w := do(mux, http.MethodPost, "/api/chats/missing/message", cookie, bytes.NewReader(body))
	if w.Code != http.StatusNotFound {
		t.Errorf("send to unknown conversation status = %d, want 404", w.Code)
	}
}

func TestCancel_NothingRunning(t *testing.T) {
	mux, _ := newTestApp(t, &testutil.FakeOllama{})
	cookie := login(t, mux, "alice", "secret123")

	w := do(mux, http.MethodPost, "/api/chats/whatever/cancel", cookie, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("cancel with nothing running status = %d, want 404", w.Code)
	}
}
