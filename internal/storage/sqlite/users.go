package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/deptportal/internal/models"
)

// CreateUser stores an account. Emails are unique.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt == 0 {
		user.CreatedAt = s.now().Unix()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, role, student_id, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Name,
		string(user.Role),
		user.StudentID,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user %s: %w", user.Email, err)
	}
	return nil
}

const selectUser = `SELECT id, email, name, role, student_id, password_hash, created_at FROM users`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	var role string
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&role,
		&user.StudentID,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	return user, nil
}

// GetUserByEmail returns nil, nil when no account has the email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email", email)
}

// GetUserByID returns nil, nil when the id is unknown.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id", id)
}

// getUser looks an account up by a unique column.
func (s *SQLiteStore) getUser(ctx context.Context, column, value string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, selectUser+" WHERE "+column+" = ?", value))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return user, nil
}
