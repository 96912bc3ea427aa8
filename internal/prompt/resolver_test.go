package prompt

import (
	"testing"

	"ragchat/internal/store"
)

func newResolver(t *testing.T) (*Resolver, store.PromptStore, store.TemplateStore) {
	t.Helper()
	dir := t.TempDir()
	prompts, err := store.NewPromptStore(dir)
	if err != nil {
		t.Fatalf("NewPromptStore: %v", err)
	}
	templates, err := store.NewTemplateStore(dir)
	if err != nil {
		t.Fatalf("NewTemplateStore: %v", err)
	}
	return NewResolver(prompts, templates), prompts, templates
}

func TestRender_FixedLayout(t *testing.T) {
	history := []store.Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "user", Content: "how are you?"},
	}

	got := Render("Be helpful.", "doc one\n\ndoc two", history)
	want := "Be helpful.\n\nRelevant documents:\ndoc one\n\ndoc two\n\nuser: hello\nassistant: hi\nuser: how are you?\nassistant:"
	if got != want {
		t.Errorf("Render output:\n%q\nwant:\n%q", got, want)
	}
}

func TestRender_EmptyContextKeepsSection(t *testing.T) {
	got := Render("Base.", "", []store.Message{{Role: "user", Content: "hi"}})
	want := "Base.\n\nRelevant documents:\n\n\nuser: hi\nassistant:"
	if got != want {
		t.Errorf("Render output:\n%q\nwant:\n%q", got, want)
	}
}

func TestInstruction_UsesSelectedTemplate(t *testing.T) {
	r, _, templates := newResolver(t)
	if _, err := templates.Save("pirate", "Talk like a pirate."); err != nil {
		t.Fatalf("Save: %v", err)
	}

	user := &store.User{SelectedTemplate: "pirate"}
	if got := r.Instruction(user); got != "Talk like a pirate." {
		t.Errorf("Instruction = %q, want template prompt", got)
	}
}

func TestInstruction_FallsBackWhenTemplateMissing(t *testing.T) {
	r, prompts, _ := newResolver(t)
	prompts.Set("Base prompt.")

	user := &store.User{SelectedTemplate: "deleted"}
	if got := r.Instruction(user); got != "Base prompt." {
		t.Errorf("Instruction = %q, want base prompt fallback", got)
	}
}

func TestInstruction_NilUser(t *testing.T) {
	r, prompts, _ := newResolver(t)
	prompts.Set("Base prompt.")

	if got := r.Instruction(nil); got != "Base prompt." {
		t.Errorf("Instruction(nil) = %q, want base prompt", got)
	}
}
