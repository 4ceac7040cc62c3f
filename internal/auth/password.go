package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/deptportal/internal/models"
)

// MinPasswordLength is the shortest password Provision accepts.
const MinPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrEmailExists        = errors.New("email already registered")
)

// UserStorage is the slice of the store that accounts live in.
type UserStorage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// PasswordAuthenticator checks email and password logins against bcrypt hashes.
type PasswordAuthenticator struct {
	users UserStorage
	cost  int
}

func NewPasswordAuthenticator(users UserStorage) *PasswordAuthenticator {
	return &PasswordAuthenticator{users: users, cost: bcrypt.DefaultCost}
}

func (a *PasswordAuthenticator) ValidateCredential(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// Provision stores a new account under a lower-cased email. Seeding uses it
// to create the demo students and administrators.
func (a *PasswordAuthenticator) Provision(ctx context.Context, user *models.User, password string) error {
	if err := a.ValidateCredential(password); err != nil {
		return err
	}

	user.Email = normalizeEmail(user.Email)
	switch existing, err := a.users.GetUserByEmail(ctx, user.Email); {
	case err != nil:
		return fmt.Errorf("failed to look up %s: %w", user.Email, err)
	case existing != nil:
		return ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.PasswordHash = string(hash)

	if err := a.users.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}
	return nil
}

// Authenticate returns the account for email when password matches its hash.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := a.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
