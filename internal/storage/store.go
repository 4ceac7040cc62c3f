// Package storage provides abstractions for the fee record store behind the
// simulated backend.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/deptportal/internal/models"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyAssigned = errors.New("fee already assigned to this student")
	ErrAlreadyPaid     = errors.New("fee already paid")
)

// Intent is a stored payment intent.
type Intent struct {
	ID           string
	StudentFeeID string
	UserID       string
	Amount       float64
	Currency     string
	Status       string
	ClientSecret string
	CreatedAt    int64
}

// Payment is a confirmed payment against a student fee.
type Payment struct {
	ID              string
	StudentFeeID    string
	UserID          string
	IntentID        string
	PaymentMethodID string
	Method          models.PaymentMethod
	AmountPaid      float64
	TransactionID   string
	PaidAt          time.Time
}

// Store defines the persistence operations of the fee backend.
// This abstraction allows swapping storage backends without changing handlers.
type Store interface {
	// CreateUser persists a user. GetUserByEmail returns nil, nil when no user matches.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// CreateFee persists a fee definition; the ID is assigned when empty.
	CreateFee(ctx context.Context, fee *models.AdminFee) error
	GetFee(ctx context.Context, id string) (*models.AdminFee, error)
	ListFees(ctx context.Context) ([]models.AdminFee, error)
	UpdateFee(ctx context.Context, fee *models.AdminFee) error
	// DeleteFee removes a definition together with its assignments.
	DeleteFee(ctx context.Context, id string) error

	// AssignFee creates a student fee. Returns ErrAlreadyAssigned for a duplicate.
	AssignFee(ctx context.Context, sf *models.StudentFee) error
	GetStudentFee(ctx context.Context, id string) (*models.StudentFee, error)
	// ListStudentFees returns a student's fees with status derived against today.
	ListStudentFees(ctx context.Context, userID string, today models.Date) ([]models.Fee, error)

	CreateIntent(ctx context.Context, intent *Intent) error
	GetIntent(ctx context.Context, id string) (*Intent, error)
	// RecordPayment stores the payment, marks the student fee paid and the
	// intent succeeded, atomically. Returns ErrAlreadyPaid if the fee is paid.
	RecordPayment(ctx context.Context, payment *Payment) error
	// MarkIntent updates an intent's gateway status.
	MarkIntent(ctx context.Context, id, status string) error

	// ListPayments returns payments newest first. An empty userID lists every
	// student's payments with student names filled in.
	ListPayments(ctx context.Context, userID string) ([]models.PaymentRecord, error)
	// Statistics computes department-wide totals with status derived against today.
	Statistics(ctx context.Context, today models.Date) (*models.PaymentStatistics, error)

	// Close releases any resources held by the store.
	Close() error
}
