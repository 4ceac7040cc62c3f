package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/deptportal/internal/models"
	"github.com/mmynk/deptportal/internal/policy"
	"github.com/mmynk/deptportal/internal/session"
)

// Editor changes fee definitions and assignments. *client.Client satisfies it.
type Editor interface {
	CreateFee(ctx context.Context, req models.FeeCreate) (*models.AdminFee, error)
	UpdateFee(ctx context.Context, feeID string, req models.FeeUpdate) (*models.AdminFee, error)
	DeleteFee(ctx context.Context, feeID string) error
	AssignFee(ctx context.Context, feeID, studentID string, amountDue *float64) (*models.StudentFee, error)
}

// Manager performs fee administration for admin sessions. Other sessions are
// refused before any request is made.
type Manager struct {
	editor  Editor
	session session.Session
	logger  *slog.Logger
}

// NewManager creates a manager. logger may be nil.
func NewManager(editor Editor, s session.Session, logger *slog.Logger) *Manager {
	if s == nil {
		s = session.Anonymous()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{editor: editor, session: s, logger: logger}
}

func (m *Manager) authorize() error {
	return policy.Authorize(m.session, policy.ActionManageFees)
}

// CreateFee adds a fee definition.
func (m *Manager) CreateFee(ctx context.Context, req models.FeeCreate) (*models.AdminFee, error) {
	if err := m.authorize(); err != nil {
		return nil, err
	}
	fee, err := m.editor.CreateFee(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create fee: %w", err)
	}
	m.logger.Info("Fee created", "fee_id", fee.ID, "title", fee.Title)
	return fee, nil
}

// UpdateFee applies a partial update to a fee definition.
func (m *Manager) UpdateFee(ctx context.Context, feeID string, req models.FeeUpdate) (*models.AdminFee, error) {
	if err := m.authorize(); err != nil {
		return nil, err
	}
	fee, err := m.editor.UpdateFee(ctx, feeID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update fee %s: %w", feeID, err)
	}
	return fee, nil
}

// DeleteFee removes a fee definition together with its assignments.
func (m *Manager) DeleteFee(ctx context.Context, feeID string) error {
	if err := m.authorize(); err != nil {
		return err
	}
	if err := m.editor.DeleteFee(ctx, feeID); err != nil {
		return fmt.Errorf("failed to delete fee %s: %w", feeID, err)
	}
	m.logger.Info("Fee deleted", "fee_id", feeID)
	return nil
}

// AssignFee bills a fee to one student. A nil amountDue bills the full amount.
func (m *Manager) AssignFee(ctx context.Context, feeID, studentID string, amountDue *float64) (*models.StudentFee, error) {
	if err := m.authorize(); err != nil {
		return nil, err
	}
	assigned, err := m.editor.AssignFee(ctx, feeID, studentID, amountDue)
	if err != nil {
		return nil, fmt.Errorf("failed to assign fee %s to %s: %w", feeID, studentID, err)
	}
	m.logger.Info("Fee assigned", "fee_id", feeID, "student_id", studentID, "student_fee_id", assigned.ID)
	return assigned, nil
}
