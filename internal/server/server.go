// Package server is the simulated departmental fee backend. It serves the
// JSON REST contract consumed by the portal clients over SQLite storage and a
// simulated payment gateway.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mmynk/deptportal/internal/auth"
	"github.com/mmynk/deptportal/internal/gateway"
	"github.com/mmynk/deptportal/internal/metrics"
	"github.com/mmynk/deptportal/internal/models"
	"github.com/mmynk/deptportal/internal/storage"
)

// BasePath prefixes every API route.
const BasePath = "/api/financials"

// Gateway is the payment processor the backend charges through.
type Gateway interface {
	CreateIntent(ctx context.Context, amount float64, currency string) (*gateway.Intent, error)
	Confirm(ctx context.Context, intentID, paymentMethodID string) (*gateway.Charge, error)
}

// Server holds the backend's dependencies.
type Server struct {
	store    storage.Store
	authn    auth.Authenticator
	jwt      *auth.JWTManager
	gateway  Gateway
	validate *validator.Validate
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics enables request and payment metrics and mounts /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithClock overrides the clock used for overdue derivation and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a backend server.
func New(store storage.Store, authn auth.Authenticator, jwt *auth.JWTManager, gw Gateway, opts ...Option) *Server {
	s := &Server{
		store:    store,
		authn:    authn,
		jwt:      jwt,
		gateway:  gw,
		validate: newValidator(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the complete HTTP handler with logging and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "POST /auth/login", s.handleLogin)

	s.route(mux, "GET /fees/my-fees", s.requireAuth(s.handleMyFees, models.RoleStudent, models.RoleAdmin))
	s.route(mux, "GET /payments/history", s.requireAuth(s.handleHistory, models.RoleStudent, models.RoleAdmin))
	s.route(mux, "POST /payments/create-intent", s.requireAuth(s.handleCreateIntent, models.RoleStudent))
	s.route(mux, "POST /payments/confirm", s.requireAuth(s.handleConfirm, models.RoleStudent))

	s.route(mux, "GET /admin/fees", s.requireAuth(s.handleListFees, models.RoleAdmin))
	s.route(mux, "POST /admin/fees", s.requireAuth(s.handleCreateFee, models.RoleAdmin))
	s.route(mux, "PUT /admin/fees/{fee_id}", s.requireAuth(s.handleUpdateFee, models.RoleAdmin))
	s.route(mux, "DELETE /admin/fees/{fee_id}", s.requireAuth(s.handleDeleteFee, models.RoleAdmin))
	s.route(mux, "POST /admin/assign-fee/{fee_id}/student/{student_id}", s.requireAuth(s.handleAssignFee, models.RoleAdmin))
	s.route(mux, "GET /admin/payment-statistics", s.requireAuth(s.handleStatistics, models.RoleAdmin))

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return loggingMiddleware(s.logger, corsMiddleware(mux))
}

func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	method, path, _ := strings.Cut(pattern, " ")
	mux.Handle(method+" "+BasePath+path, s.instrument(BasePath+path, h))
}

// today is the calendar date used for overdue derivation.
func (s *Server) today() models.Date {
	return models.DateOf(s.now())
}
