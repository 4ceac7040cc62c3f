package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mmynk/deptportal/internal/auth"
	"github.com/mmynk/deptportal/internal/models"
)

func TestFromToken(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Hour)
	token, err := manager.Generate(&models.User{ID: "u-1", Name: "Karim", Role: models.RoleStudent})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	s, err := FromToken(token)
	if err != nil {
		t.Fatalf("FromToken failed: %v", err)
	}
	if !s.Authenticated() || s.Role() != models.RoleStudent || s.UserID() != "u-1" || s.Token() != token {
		t.Errorf("session = %+v, want authenticated student u-1", s)
	}

	anon, err := FromToken("  ")
	if err != nil {
		t.Fatalf("FromToken(empty) failed: %v", err)
	}
	if anon.Authenticated() || anon.Token() != "" {
		t.Errorf("session = %+v, want anonymous", anon)
	}

	if _, err := FromToken("garbage"); err == nil {
		t.Error("Expected error for malformed token, got nil")
	}
}

func TestStaticAuthenticated(t *testing.T) {
	tests := []struct {
		name string
		s    Static
		want bool
	}{
		{name: "anonymous", s: Anonymous(), want: false},
		{name: "role without id", s: Static{ActorRole: models.RoleStudent}, want: false},
		{name: "unknown role", s: Static{ActorID: "u-1", ActorRole: "guest"}, want: false},
		{name: "student", s: Static{ActorID: "u-1", ActorRole: models.RoleStudent}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Authenticated(); got != tt.want {
				t.Errorf("Authenticated() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFileStore(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Hour)
	token, err := manager.Generate(&models.User{ID: "admin-1", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "token"))

	s, err := store.Load()
	if err != nil {
		t.Fatalf("Load on empty store failed: %v", err)
	}
	if s.Authenticated() {
		t.Error("Expected anonymous session from empty store")
	}

	if err := store.Save(token); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	s, err = store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Role() != models.RoleAdmin {
		t.Errorf("Role = %s, want admin", s.Role())
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("second Clear failed: %v", err)
	}
}
