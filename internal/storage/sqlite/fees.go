package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/deptportal/internal/models"
	"github.com/mmynk/deptportal/internal/pricing"
	"github.com/mmynk/deptportal/internal/storage"
)

// CreateFee persists a new fee definition.
func (s *SQLiteStore) CreateFee(ctx context.Context, fee *models.AdminFee) error {
	if fee.ID == "" {
		fee.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fees (id, title, description, type, amount, deadline, semester, academic_year,
			is_installment_available, installment_count, installment_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fee.ID, fee.Title, fee.Description, fee.Type, fee.Amount, fee.Deadline.String(),
		fee.Semester, fee.AcademicYear, boolToInt(fee.IsInstallmentAvailable),
		nullInt(fee.InstallmentCount), nullFloat(fee.InstallmentAmount), s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert fee: %w", err)
	}
	return nil
}

const selectFee = `
	SELECT id, title, description, type, amount, deadline, semester, academic_year,
		is_installment_available, installment_count, installment_amount
	FROM fees`

func scanFee(row interface{ Scan(...any) error }) (*models.AdminFee, error) {
	fee := &models.AdminFee{}
	var (
		deadline    string
		installment int
		count       sql.NullInt64
		amount      sql.NullFloat64
	)
	if err := row.Scan(
		&fee.ID, &fee.Title, &fee.Description, &fee.Type, &fee.Amount, &deadline,
		&fee.Semester, &fee.AcademicYear, &installment, &count, &amount,
	); err != nil {
		return nil, err
	}

	d, err := parseStoredDate(deadline)
	if err != nil {
		return nil, fmt.Errorf("fee %s: %w", fee.ID, err)
	}
	fee.Deadline = d
	fee.IsInstallmentAvailable = installment != 0
	if count.Valid {
		n := int(count.Int64)
		fee.InstallmentCount = &n
	}
	if amount.Valid {
		v := amount.Float64
		fee.InstallmentAmount = &v
	}
	return fee, nil
}

// GetFee retrieves a fee definition by ID.
func (s *SQLiteStore) GetFee(ctx context.Context, id string) (*models.AdminFee, error) {
	fee, err := scanFee(s.db.QueryRowContext(ctx, selectFee+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fee %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fee: %w", err)
	}
	return fee, nil
}

// ListFees returns every fee definition ordered by deadline.
func (s *SQLiteStore) ListFees(ctx context.Context) ([]models.AdminFee, error) {
	rows, err := s.db.QueryContext(ctx, selectFee+" ORDER BY deadline, title")
	if err != nil {
		return nil, fmt.Errorf("failed to list fees: %w", err)
	}
	defer rows.Close()

	fees := []models.AdminFee{}
	for rows.Next() {
		fee, err := scanFee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fee: %w", err)
		}
		fees = append(fees, *fee)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fees: %w", err)
	}
	return fees, nil
}

// UpdateFee overwrites an existing fee definition.
func (s *SQLiteStore) UpdateFee(ctx context.Context, fee *models.AdminFee) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE fees SET title = ?, description = ?, type = ?, amount = ?, deadline = ?,
			semester = ?, academic_year = ?, is_installment_available = ?,
			installment_count = ?, installment_amount = ?
		WHERE id = ?`,
		fee.Title, fee.Description, fee.Type, fee.Amount, fee.Deadline.String(),
		fee.Semester, fee.AcademicYear, boolToInt(fee.IsInstallmentAvailable),
		nullInt(fee.InstallmentCount), nullFloat(fee.InstallmentAmount), fee.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update fee: %w", err)
	}
	return expectOneRow(result, "fee", fee.ID)
}

// DeleteFee removes a fee definition; assignments and payments cascade.
func (s *SQLiteStore) DeleteFee(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM fees WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete fee: %w", err)
	}
	return expectOneRow(result, "fee", id)
}

// AssignFee assigns a fee definition to a student. A zero AmountDue takes the
// fee's full amount.
func (s *SQLiteStore) AssignFee(ctx context.Context, sf *models.StudentFee) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var amount float64
	err = tx.QueryRowContext(ctx, "SELECT amount FROM fees WHERE id = ?", sf.FeeID).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("fee %s: %w", sf.FeeID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get fee: %w", err)
	}

	var role string
	err = tx.QueryRowContext(ctx, "SELECT role FROM users WHERE id = ?", sf.StudentID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && models.Role(role) != models.RoleStudent) {
		return fmt.Errorf("student %s: %w", sf.StudentID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get student: %w", err)
	}

	var existing int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM student_fees WHERE student_id = ? AND fee_id = ?",
		sf.StudentID, sf.FeeID,
	).Scan(&existing); err != nil {
		return fmt.Errorf("failed to check assignment: %w", err)
	}
	if existing > 0 {
		return storage.ErrAlreadyAssigned
	}

	if sf.ID == "" {
		sf.ID = uuid.New().String()
	}
	if sf.AmountDue == 0 {
		sf.AmountDue = amount
	}
	sf.Status = models.StatusPending
	sf.CreatedAt = s.now().Unix()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO student_fees (id, student_id, fee_id, amount_due, amount_paid, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sf.ID, sf.StudentID, sf.FeeID, sf.AmountDue, sf.AmountPaid, string(sf.Status), sf.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert student fee: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetStudentFee retrieves one assignment by ID.
func (s *SQLiteStore) GetStudentFee(ctx context.Context, id string) (*models.StudentFee, error) {
	sf := &models.StudentFee{}
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, fee_id, amount_due, amount_paid, status, created_at
		FROM student_fees WHERE id = ?`, id,
	).Scan(&sf.ID, &sf.StudentID, &sf.FeeID, &sf.AmountDue, &sf.AmountPaid, &status, &sf.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("student fee %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student fee: %w", err)
	}
	sf.Status = models.FeeStatus(status)
	return sf, nil
}

// ListStudentFees returns the fees assigned to a student, joined with their
// definitions and latest payment. The fee ID is the assignment ID.
func (s *SQLiteStore) ListStudentFees(ctx context.Context, userID string, today models.Date) ([]models.Fee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sf.id, f.title, f.description, f.type, sf.amount_due, f.deadline, sf.status,
			f.semester, f.academic_year, f.is_installment_available, f.installment_count,
			f.installment_amount, p.transaction_id, p.paid_at
		FROM student_fees sf
		JOIN fees f ON f.id = sf.fee_id
		LEFT JOIN payments p ON p.student_fee_id = sf.id
		WHERE sf.student_id = ?
		ORDER BY f.deadline, f.title`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list student fees: %w", err)
	}
	defer rows.Close()

	fees := []models.Fee{}
	for rows.Next() {
		var (
			fee         models.Fee
			deadline    string
			status      string
			installment int
			count       sql.NullInt64
			perAmount   sql.NullFloat64
			txID        sql.NullString
			paidAt      sql.NullInt64
		)
		if err := rows.Scan(
			&fee.ID, &fee.Title, &fee.Description, &fee.Category, &fee.Amount, &deadline, &status,
			&fee.Semester, &fee.AcademicYear, &installment, &count, &perAmount, &txID, &paidAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan student fee: %w", err)
		}

		d, err := parseStoredDate(deadline)
		if err != nil {
			return nil, fmt.Errorf("student fee %s: %w", fee.ID, err)
		}
		fee.Deadline = d
		fee.Status = models.DeriveStatus(models.FeeStatus(status), d, today)

		if installment != 0 && count.Valid && count.Int64 >= 2 {
			opts := &models.InstallmentOptions{Count: int(count.Int64)}
			if perAmount.Valid {
				opts.Amount = perAmount.Float64
			} else {
				opts.Amount = pricing.InstallmentAmount(fee.Amount, opts.Count)
			}
			fee.InstallmentOptions = opts
		}
		if txID.Valid {
			fee.TransactionID = txID.String
		}
		if paidAt.Valid {
			fee.PaymentDate = unixTimestamp(paidAt.Int64)
		}
		fees = append(fees, fee)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate student fees: %w", err)
	}
	return fees, nil
}

func expectOneRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}

func parseStoredDate(s string) (models.Date, error) {
	if s == "" {
		return models.Date{}, nil
	}
	return models.ParseDate(s)
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
