package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmynk/deptportal/internal/models"
)

// Issuer is stamped into every access token the portal signs.
const Issuer = "deptportal"

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

// Claims is the payload of a portal access token. The role travels in the
// token so route guards never touch the database.
type Claims struct {
	UserID    string      `json:"user_id"`
	Email     string      `json:"email"`
	Name      string      `json:"name,omitempty"`
	Role      models.Role `json:"role"`
	StudentID string      `json:"student_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies HS256 access tokens.
type JWTManager struct {
	key    []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// JWTOption configures a JWTManager.
type JWTOption func(*JWTManager)

// WithTokenClock sets the clock used for issued-at and expiry checks.
func WithTokenClock(now func() time.Time) JWTOption {
	return func(m *JWTManager) { m.now = now }
}

// NewJWTManager returns a manager whose tokens live for ttl.
func NewJWTManager(secret string, ttl time.Duration, opts ...JWTOption) *JWTManager {
	m := &JWTManager{key: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	m.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	return m
}

// Generate signs a token for user.
func (m *JWTManager) Generate(user *models.User) (string, error) {
	issued := m.now()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		StudentID: user.StudentID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(m.ttl)),
		},
	}).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token for %s: %w", user.ID, err)
	}
	return signed, nil
}

// Validate verifies the signature, issuer and expiry of raw and returns its claims.
func (m *JWTManager) Validate(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := m.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Role == "" || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value. An empty
// header yields ErrMissingToken; any other malformed value yields ErrInvalidToken.
func BearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}

// ParseUnverified decodes the claims of a token without checking its signature.
// Clients use it to read the role of a token the backend issued; the backend
// itself must always call Validate.
func ParseUnverified(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
