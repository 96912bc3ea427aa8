// Package app bundles the application's wired dependencies so handlers get
// one injection point instead of a parameter per store.
package app

import (
	"ragchat/internal/auth"
	"ragchat/internal/config"
	"ragchat/internal/ollama"
	"ragchat/internal/rag"
	"ragchat/internal/service/chat"
	"ragchat/internal/store"
)

// Config holds every constructed dependency for the HTTP layer.
type Config struct {
	AppConfig *config.AppConfig

	Users     store.UserStore
	Chats     store.ChatStore
	Templates store.TemplateStore
	Prompts   store.PromptStore
	Audit     store.AuditStore
	Docs      *rag.Store

	Sessions *auth.SessionStore
	Guard    *auth.Guard

	LLM  *ollama.Client
	Chat *chat.Service
}
