package store

import (
	"errors"
	"strings"
	"testing"
)

func newChatStore(t *testing.T) *FileChatStore {
	t.Helper()
	s, err := NewChatStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewChatStore: %v", err)
	}
	return s
}

func TestChatStore_CreateAndAppend(t *testing.T) {
	s := newChatStore(t)

	id, err := s.Create("alice")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.Append("alice", id, Message{Role: "user", Content: "hello"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append("alice", id, Message{Role: "assistant", Content: "hi"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	msgs, err := s.Get("alice", id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "hello" {
		t.Errorf("msgs[0] = %+v, want user/hello", msgs[0])
	}
	if msgs[1].Role != "assistant" || msgs[1].Content != "hi" {
		t.Errorf("msgs[1] = %+v, want assistant/hi", msgs[1])
	}
}

func TestChatStore_AppendToMissingConversation(t *testing.T) {
	s := newChatStore(t)
	if err := s.Append("alice", "missing", Message{Role: "user", Content: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Append to missing conversation: err = %v, want ErrNotFound", err)
	}
}

func TestChatStore_ConversationsAreScopedPerUser(t *testing.T) {
	s := newChatStore(t)
	id, _ := s.Create("alice")

	if _, err := s.Get("bob", id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get as other user: err = %v, want ErrNotFound", err)
	}
}

func TestChatStore_TitleDerivation(t *testing.T) {
	s := newChatStore(t)

	empty, _ := s.Create("alice")
	long, _ := s.Create("alice")
	s.Append("alice", long, Message{Role: "user", Content: strings.Repeat("héllo ", 10)})

	byID := map[string]string{}
	for _, summary := range s.List("alice") {
		byID[summary.ID] = summary.Title
	}

	if byID[empty] != "New Chat" {
		t.Errorf("empty conversation title = %q, want New Chat", byID[empty])
	}
	wantLong := string([]rune(strings.Repeat("héllo ", 10))[:30])
	if byID[long] != wantLong {
		t.Errorf("long title = %q, want first 30 runes %q", byID[long], wantLong)
	}
}

func TestChatStore_DeleteAndDeleteAll(t *testing.T) {
	s := newChatStore(t)
	id1, _ := s.Create("alice")
	id2, _ := s.Create("alice")

	if err := s.Delete("alice", id1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("alice", id1); !errors.Is(err, ErrNotFound) {
		t.Errorf("double Delete: err = %v, want ErrNotFound", err)
	}
	if len(s.List("alice")) != 1 {
		t.Fatalf("List length = %d after delete, want 1", len(s.List("alice")))
	}

	s.DeleteAll("alice")
	if len(s.List("alice")) != 0 {
		t.Errorf("List length = %d after DeleteAll, want 0", len(s.List("alice")))
	}
	if _, err := s.Get("alice", id2); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after DeleteAll: err = %v, want ErrNotFound", err)
	}
}

func TestChatStore_PersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()

	s, err := NewChatStore(dir)
	if err != nil {
		t.Fatalf("NewChatStore: %v", err)
	}
	id, _ := s.Create("alice")
	s.Append("alice", id, Message{Role: "user", Content: "hello"})

	reloaded, err := NewChatStore(dir)
	if err != nil {
		t.Fatalf("NewChatStore (reload): %v", err)
	}
	msgs, err := reloaded.Get("alice", id)
	if err != nil {
		t.Fatalf("Get after reload: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hello" {
		t.Errorf("reloaded transcript = %+v, want [user/hello]", msgs)
	}
}
