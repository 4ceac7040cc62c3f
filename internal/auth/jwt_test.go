package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmynk/deptportal/internal/models"
)

func TestJWTManager(t *testing.T) {
	manager := NewJWTManager("test-secret-key-32-bytes-long!!!", time.Hour)
	user := &models.User{
		ID:        "user-1",
		Email:     "rahim@dept.edu",
		Name:      "Rahim",
		Role:      models.RoleStudent,
		StudentID: "student-1",
	}

	token, err := manager.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	t.Run("Validate returns claims", func(t *testing.T) {
		claims, err := manager.Validate(token)
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if claims.UserID != user.ID || claims.Role != models.RoleStudent || claims.StudentID != "student-1" {
			t.Errorf("claims = %+v, want user-1/student/student-1", claims)
		}
	})

	t.Run("Validate rejects a different secret", func(t *testing.T) {
		other := NewJWTManager("another-secret", time.Hour)
		if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("Validate rejects an expired token", func(t *testing.T) {
		issued := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
		at := func(ts time.Time) JWTOption { return WithTokenClock(func() time.Time { return ts }) }
		old, err := NewJWTManager("test-secret-key-32-bytes-long!!!", time.Hour, at(issued)).Generate(user)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		later := NewJWTManager("test-secret-key-32-bytes-long!!!", time.Hour, at(issued.Add(2*time.Hour)))
		if _, err := later.Validate(old); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate error = %v, want ErrInvalidToken", err)
		}
		sameHour := NewJWTManager("test-secret-key-32-bytes-long!!!", time.Hour, at(issued.Add(30*time.Minute)))
		if _, err := sameHour.Validate(old); err != nil {
			t.Errorf("Validate within ttl failed: %v", err)
		}
	})

	t.Run("ParseUnverified reads the role", func(t *testing.T) {
		claims, err := ParseUnverified(token)
		if err != nil {
			t.Fatalf("ParseUnverified failed: %v", err)
		}
		if claims.Role != models.RoleStudent {
			t.Errorf("Role = %s, want student", claims.Role)
		}
	})

	t.Run("ParseUnverified rejects garbage", func(t *testing.T) {
		if _, err := ParseUnverified("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ParseUnverified error = %v, want ErrInvalidToken", err)
		}
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr error
	}{
		{header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{header: "bearer abc", want: "abc"},
		{header: "", wantErr: ErrMissingToken},
		{header: "   ", wantErr: ErrMissingToken},
		{header: "Basic dXNlcjpwYXNz", wantErr: ErrInvalidToken},
		{header: "Bearer ", wantErr: ErrInvalidToken},
		{header: "abc", wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if !errors.Is(err, tt.wantErr) || got != tt.want {
			t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, got, err, tt.want, tt.wantErr)
		}
	}
}

type memUsers struct {
	byEmail map[string]*models.User
}

func (m *memUsers) CreateUser(_ context.Context, user *models.User) error {
	m.byEmail[user.Email] = user
	return nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return m.byEmail[email], nil
}

func TestPasswordAuthenticator(t *testing.T) {
	ctx := context.Background()
	store := &memUsers{byEmail: map[string]*models.User{}}
	authn := NewPasswordAuthenticator(store)

	user := &models.User{Email: "Admin@Dept.edu", Name: "Admin", Role: models.RoleAdmin}
	if err := authn.Provision(ctx, user, "correct-horse"); err != nil {
		t.Fatalf("Provision failed: %v", err)
	}
	if user.ID == "" {
		t.Error("Expected user ID to be generated")
	}

	if err := authn.Provision(ctx, &models.User{Email: "admin@dept.edu"}, "another-password"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("Provision duplicate error = %v, want ErrEmailExists", err)
	}
	if err := authn.Provision(ctx, &models.User{Email: "x@dept.edu"}, "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("Provision weak password error = %v, want ErrWeakPassword", err)
	}

	got, err := authn.Authenticate(ctx, "admin@dept.edu", "correct-horse")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.Role != models.RoleAdmin {
		t.Errorf("Role = %s, want admin", got.Role)
	}

	if _, err := authn.Authenticate(ctx, "admin@dept.edu", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Authenticate error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := authn.Authenticate(ctx, "nobody@dept.edu", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Authenticate error = %v, want ErrInvalidCredentials", err)
	}
}
