// Package prompt builds the generation prompt from the base instruction, an
// optional per-user template, retrieved document context, and the transcript.
package prompt

import (
	"strings"

	"ragchat/internal/store"
)

// Resolver combines the base-prompt store and the template store. It never
// fails: a selected template that no longer exists silently falls back to
// the base prompt.
type Resolver struct {
	Prompts   store.PromptStore
	Templates store.TemplateStore
}

func NewResolver(prompts store.PromptStore, templates store.TemplateStore) *Resolver {
	return &Resolver{Prompts: prompts, Templates: templates}
}

// Instruction resolves the system instruction for a user: the selected
// template's text if it still exists, otherwise the base prompt.
func (r *Resolver) Instruction(user *store.User) string {
	if user != nil && user.SelectedTemplate != "" {
		if tmpl, err := r.Templates.Get(user.SelectedTemplate); err == nil {
			return tmpl.Prompt
		}
	}
	return r.Prompts.Get()
}

// Build produces the full generation prompt. The layout is fixed; an empty
// context just leaves the documents section blank.
func (r *Resolver) Build(user *store.User, context string, history []store.Message) string {
	return Render(r.Instruction(user), context, history)
}

// Render assembles the prompt from already-resolved parts.
func Render(instruction, context string, history []store.Message) string {
	lines := make([]string, len(history))
	for i, msg := range history {
		lines[i] = msg.Role + ": " + msg.Content
	}

	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\nRelevant documents:\n")
	b.WriteString(context)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\nassistant:")
	return b.String()
}
