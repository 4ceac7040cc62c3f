package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/deptportal/internal/models"
	"github.com/mmynk/deptportal/internal/storage"
)

// CreateIntent persists a new payment intent.
func (s *SQLiteStore) CreateIntent(ctx context.Context, intent *storage.Intent) error {
	if intent.ID == "" {
		intent.ID = "pi_" + uuid.New().String()
	}
	if intent.CreatedAt == 0 {
		intent.CreatedAt = s.now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payment_intents (id, student_fee_id, user_id, amount, currency, status, client_secret, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		intent.ID, intent.StudentFeeID, intent.UserID, intent.Amount, intent.Currency,
		intent.Status, intent.ClientSecret, intent.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment intent: %w", err)
	}
	return nil
}

// GetIntent retrieves a payment intent by ID.
func (s *SQLiteStore) GetIntent(ctx context.Context, id string) (*storage.Intent, error) {
	intent := &storage.Intent{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, student_fee_id, user_id, amount, currency, status, client_secret, created_at
		 FROM payment_intents WHERE id = ?`,
		id,
	).Scan(&intent.ID, &intent.StudentFeeID, &intent.UserID, &intent.Amount, &intent.Currency,
		&intent.Status, &intent.ClientSecret, &intent.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment intent %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	return intent, nil
}

// MarkIntent updates an intent's status.
func (s *SQLiteStore) MarkIntent(ctx context.Context, id, status string) error {
	result, err := s.db.ExecContext(ctx, "UPDATE payment_intents SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update payment intent: %w", err)
	}
	return expectOneRow(result, "payment intent", id)
}

// RecordPayment stores a confirmed payment and marks the fee and intent paid.
func (s *SQLiteStore) RecordPayment(ctx context.Context, payment *storage.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = s.now()
	}
	if payment.Method == "" {
		payment.Method = models.MethodStripe
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE student_fees SET status = ?, amount_paid = ? WHERE id = ? AND status != ?",
		string(models.StatusPaid), payment.AmountPaid, payment.StudentFeeID, string(models.StatusPaid),
	)
	if err != nil {
		return fmt.Errorf("failed to mark student fee paid: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	} else if n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM student_fees WHERE id = ?", payment.StudentFeeID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check student fee: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("student fee %s: %w", payment.StudentFeeID, storage.ErrNotFound)
		}
		return storage.ErrAlreadyPaid
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payments (id, student_fee_id, user_id, intent_id, payment_method_id, method, amount_paid, transaction_id, status, paid_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.StudentFeeID, payment.UserID, payment.IntentID, payment.PaymentMethodID,
		string(payment.Method), payment.AmountPaid, payment.TransactionID, string(models.StatusPaid),
		payment.PaidAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	if payment.IntentID != "" {
		if _, err := tx.ExecContext(ctx,
			"UPDATE payment_intents SET status = 'succeeded' WHERE id = ?", payment.IntentID,
		); err != nil {
			return fmt.Errorf("failed to update payment intent: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListPayments returns payments newest first. An empty userID lists all payments.
func (s *SQLiteStore) ListPayments(ctx context.Context, userID string) ([]models.PaymentRecord, error) {
	query := `
		SELECT p.id, f.title, p.amount_paid, p.paid_at, p.method, p.transaction_id, p.status, u.name
		FROM payments p
		JOIN student_fees sf ON sf.id = p.student_fee_id
		JOIN fees f ON f.id = sf.fee_id
		JOIN users u ON u.id = sf.student_id`
	var args []any
	if userID != "" {
		query += " WHERE sf.student_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY p.paid_at DESC, p.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	records := []models.PaymentRecord{}
	for rows.Next() {
		var (
			rec     models.PaymentRecord
			paidAt  int64
			method  string
			status  string
			student string
		)
		if err := rows.Scan(&rec.ID, &rec.FeeTitle, &rec.AmountPaid, &paidAt, &method,
			&rec.TransactionID, &status, &student); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		rec.PaymentDate = unixTimestamp(paidAt)
		rec.PaymentMethod = models.PaymentMethod(method)
		rec.Status = models.FeeStatus(status)
		if userID == "" {
			rec.StudentName = student
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return records, nil
}

// Statistics computes department-wide totals. Counts use the same overdue
// rule as ListStudentFees.
func (s *SQLiteStore) Statistics(ctx context.Context, today models.Date) (*models.PaymentStatistics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sf.amount_due, sf.status, f.deadline
		FROM student_fees sf
		JOIN fees f ON f.id = sf.fee_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query student fees: %w", err)
	}
	defer rows.Close()

	stats := &models.PaymentStatistics{}
	due := decimal.Zero
	for rows.Next() {
		var (
			amount   float64
			status   string
			deadline string
		)
		if err := rows.Scan(&amount, &status, &deadline); err != nil {
			return nil, fmt.Errorf("failed to scan student fee: %w", err)
		}
		d, err := parseStoredDate(deadline)
		if err != nil {
			return nil, err
		}
		switch models.DeriveStatus(models.FeeStatus(status), d, today) {
		case models.StatusPaid:
			stats.PaidFeesCount++
		case models.StatusOverdue:
			stats.OverdueFeesCount++
			due = due.Add(decimal.NewFromFloat(amount))
		default:
			stats.PendingFeesCount++
			due = due.Add(decimal.NewFromFloat(amount))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate student fees: %w", err)
	}
	rows.Close()

	history, err := s.ListPayments(ctx, "")
	if err != nil {
		return nil, err
	}
	paid := decimal.Zero
	for _, rec := range history {
		paid = paid.Add(decimal.NewFromFloat(rec.AmountPaid))
	}

	stats.TotalDue = due.Round(2).InexactFloat64()
	stats.TotalPaid = paid.Round(2).InexactFloat64()
	stats.PaymentHistory = history
	return stats, nil
}

func unixTimestamp(sec int64) *models.Timestamp {
	return &models.Timestamp{Time: time.Unix(sec, 0).UTC()}
}
