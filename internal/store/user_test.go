package store

import (
	"errors"
	"testing"
)

func newUserStore(t *testing.T) *FileUserStore {
	t.Helper()
	s, err := NewUserStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewUserStore: %v", err)
	}
	return s
}

func TestUserStore_CreateAndAuthenticate(t *testing.T) {
	s := newUserStore(t)

	created, err := s.Create("alice", "secret123", RoleUser)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Username != "alice" || created.Role != RoleUser {
		t.Errorf("created user = %+v, want alice/%s", created, RoleUser)
	}
	if created.PasswordHash == "secret123" {
		t.Error("password stored in plaintext")
	}

	user, err := s.Authenticate("alice", "secret123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("authenticated username = %q, want alice", user.Username)
	}

	if _, err := s.Authenticate("alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Authenticate with wrong password: err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := s.Authenticate("nobody", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Authenticate unknown user: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestUserStore_DuplicateUsername(t *testing.T) {
	s := newUserStore(t)
	if _, err := s.Create("alice", "secret123", RoleUser); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create("alice", "other456", RoleAdmin); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate Create: err = %v, want ErrUserExists", err)
	}
}

func TestUserStore_Delete(t *testing.T) {
	s := newUserStore(t)
	if _, err := s.Create("alice", "secret123", RoleUser); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.Delete("alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
	if err := s.Delete("alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double Delete: err = %v, want ErrNotFound", err)
	}
}

func TestUserStore_Settings(t *testing.T) {
	s := newUserStore(t)
	if _, err := s.Create("alice", "secret123", RoleUser); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.SetModel("alice", "llama3:latest"); err != nil {
		t.Fatalf("SetModel: %v", err)
	}
	if err := s.SetTemplate("alice", "pirate"); err != nil {
		t.Fatalf("SetTemplate: %v", err)
	}

	user, err := s.Get("alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if user.SelectedModel != "llama3:latest" || user.SelectedTemplate != "pirate" {
		t.Errorf("settings = %q/%q, want llama3:latest/pirate", user.SelectedModel, user.SelectedTemplate)
	}

	if err := s.SetModel("nobody", "m"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetModel unknown user: err = %v, want ErrNotFound", err)
	}
}

func TestUserStore_SetPassword(t *testing.T) {
	s := newUserStore(t)
	if _, err := s.Create("alice", "secret123", RoleUser); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.SetPassword("alice", "newpass456"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if _, err := s.Authenticate("alice", "secret123"); err == nil {
		t.Error("old password still authenticates after reset")
	}
	if _, err := s.Authenticate("alice", "newpass456"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestUserStore_PersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()

	s, err := NewUserStore(dir)
	if err != nil {
		t.Fatalf("NewUserStore: %v", err)
	}
	if _, err := s.Create("alice", "secret123", RoleAdmin); err != nil {
		t.Fatalf("Create: %v", err)
	}

	reloaded, err := NewUserStore(dir)
	if err != nil {
		t.Fatalf("NewUserStore (reload): %v", err)
	}
	user, err := reloaded.Authenticate("alice", "secret123")
	if err != nil {
		t.Fatalf("Authenticate after reload: %v", err)
	}
	if user.Role != RoleAdmin {
		t.Errorf("reloaded role = %q, want %s", user.Role, RoleAdmin)
	}
}

func TestUserStore_GetReturnsCopy(t *testing.T) {
	s := newUserStore(t)
	if _, err := s.Create("alice", "secret123", RoleUser); err != nil {
		t.Fatalf("Create: %v", err)
	}

	user, _ := s.Get("alice")
	user.Role = RoleAdmin

	again, _ := s.Get("alice")
	if again.Role != RoleUser {
		t.Error("mutating a Get result leaked into the store")
	}
}
