package models

// Role is the role string carried by a session.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleAdmin:
		return true
	}
	return false
}

// User represents a portal account known to the backend.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id"`

	// Name is the display name of the user.
	Name string `json:"name"`

	// Email is the login identifier (unique).
	Email string `json:"email"`

	// Role decides which dashboards and endpoints the user may reach.
	Role Role `json:"role"`

	// PasswordHash is the bcrypt hash of the user's password. Never serialized.
	PasswordHash string `json:"-"`

	// StudentID links a student account to its student profile.
	// Empty for faculty and admin accounts.
	StudentID string `json:"student_id,omitempty"`

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64 `json:"created_at"`
}
