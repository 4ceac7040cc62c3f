// Package session provides the "current session" capability that fee components
// receive explicitly instead of reading ambient storage.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmynk/deptportal/internal/auth"
	"github.com/mmynk/deptportal/internal/models"
)

// Session is the authenticated (or anonymous) actor on whose behalf a component works.
type Session interface {
	// Token is the bearer token attached to backend requests. Empty for anonymous sessions.
	Token() string
	// Role is the role string supplied by the session. It is trusted as-is.
	Role() models.Role
	// UserID identifies the actor. Empty for anonymous sessions.
	UserID() string
	// Authenticated reports whether the session belongs to a known actor.
	Authenticated() bool
}

// Static is a fixed Session value.
type Static struct {
	BearerToken string
	ActorID     string
	ActorName   string
	ActorRole   models.Role
}

var _ Session = Static{}

func (s Static) Token() string       { return s.BearerToken }
func (s Static) Role() models.Role   { return s.ActorRole }
func (s Static) UserID() string      { return s.ActorID }
func (s Static) Authenticated() bool { return s.ActorID != "" && s.ActorRole.Valid() }

// Name is the display name carried by the session, if any.
func (s Static) Name() string { return s.ActorName }

// Anonymous returns a session with no actor and no token.
func Anonymous() Static {
	return Static{}
}

// FromToken builds a session from a backend-issued token. The signature is not
// verified here; the backend re-validates the token on every request.
func FromToken(token string) (Static, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Anonymous(), nil
	}
	claims, err := auth.ParseUnverified(token)
	if err != nil {
		return Static{}, err
	}
	return Static{
		BearerToken: token,
		ActorID:     claims.UserID,
		ActorName:   claims.Name,
		ActorRole:   claims.Role,
	}, nil
}

// FileStore keeps a bearer token on disk between invocations of a terminal client.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save writes the token with owner-only permissions.
func (f *FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Load returns the stored session, or an anonymous one when nothing is stored.
func (f *FileStore) Load() (Static, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Anonymous(), nil
	}
	if err != nil {
		return Static{}, fmt.Errorf("failed to read session: %w", err)
	}
	return FromToken(string(data))
}

// Clear removes the stored token.
func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
