package auth

import (
	"context"

	"github.com/mmynk/deptportal/internal/models"
)

// Authenticator verifies credentials for portal accounts.
// The fee backend only needs login; account management lives elsewhere.
type Authenticator interface {
	// Authenticate verifies the user's credentials and returns the user if successful.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)
}
