package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/deptportal/internal/auth"
	"github.com/mmynk/deptportal/internal/models"
	"github.com/mmynk/deptportal/internal/storage"
)

// Account is a seeded login.
type Account struct {
	Name      string
	Email     string
	Password  string
	Role      models.Role
	StudentID string
}

// DemoAccounts are provisioned by Seed.
var DemoAccounts = []Account{
	{Name: "Department Admin", Email: "admin@cse.dept.edu", Password: "admin-pass-123", Role: models.RoleAdmin},
	{Name: "Rahim Uddin", Email: "rahim@cse.dept.edu", Password: "student-pass-123", Role: models.RoleStudent, StudentID: "CSE-2021-001"},
	{Name: "Nadia Islam", Email: "nadia@cse.dept.edu", Password: "student-pass-123", Role: models.RoleStudent, StudentID: "CSE-2021-002"},
	{Name: "Dr. Karim Hossain", Email: "karim@cse.dept.edu", Password: "faculty-pass-123", Role: models.RoleFaculty},
}

// demoFees are relative to the seeding day so the overdue rule has something
// to show.
func demoFees(today models.Date) []models.AdminFee {
	three := 3
	return []models.AdminFee{
		{
			Title:        "Development Fee",
			Description:  "Annual lab and infrastructure development",
			Type:         "development",
			Amount:       5000,
			Deadline:     models.DateOf(today.AddDate(0, 0, 30)),
			Semester:     "Spring",
			AcademicYear: "2024-2025",
		},
		{
			Title:        "Admission Fee",
			Type:         "admission",
			Amount:       15000,
			Deadline:     models.DateOf(today.AddDate(0, 0, -10)),
			Semester:     "Spring",
			AcademicYear: "2024-2025",
		},
		{
			Title:                  "Semester Tuition",
			Description:            "Tuition for 15 credit hours",
			Type:                   "tuition_fee",
			Amount:                 45000,
			Deadline:               models.DateOf(today.AddDate(0, 0, 60)),
			Semester:               "Spring",
			AcademicYear:           "2024-2025",
			IsInstallmentAvailable: true,
			InstallmentCount:       &three,
		},
		{
			Title:        "Library Card",
			Type:         "other",
			Amount:       500,
			Deadline:     models.DateOf(today.AddDate(0, 0, 14)),
			Semester:     "Spring",
			AcademicYear: "2024-2025",
		},
	}
}

// Seed provisions the demo accounts and, on an empty fee table, the demo fees
// assigned to every demo student. Running it again changes nothing.
func Seed(ctx context.Context, store storage.Store, authn *auth.PasswordAuthenticator, today models.Date, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	var students []string
	for _, acct := range DemoAccounts {
		user := &models.User{
			Name:      acct.Name,
			Email:     acct.Email,
			Role:      acct.Role,
			StudentID: acct.StudentID,
		}
		err := authn.Provision(ctx, user, acct.Password)
		if errors.Is(err, auth.ErrEmailExists) {
			found, err := store.GetUserByEmail(ctx, acct.Email)
			if err != nil {
				return fmt.Errorf("failed to look up %s: %w", acct.Email, err)
			}
			if found == nil {
				return fmt.Errorf("account %s: %w", acct.Email, storage.ErrNotFound)
			}
			user = found
		} else if err != nil {
			return fmt.Errorf("failed to provision %s: %w", acct.Email, err)
		} else {
			logger.Info("Seeded account", "email", user.Email, "role", user.Role)
		}
		if user.Role == models.RoleStudent {
			students = append(students, user.ID)
		}
	}

	fees, err := store.ListFees(ctx)
	if err != nil {
		return err
	}
	if len(fees) > 0 {
		return nil
	}

	for _, fee := range demoFees(today) {
		if err := store.CreateFee(ctx, &fee); err != nil {
			return fmt.Errorf("failed to seed fee %q: %w", fee.Title, err)
		}
		for _, studentID := range students {
			sf := &models.StudentFee{StudentID: studentID, FeeID: fee.ID}
			if err := store.AssignFee(ctx, sf); err != nil && !errors.Is(err, storage.ErrAlreadyAssigned) {
				return fmt.Errorf("failed to assign %q: %w", fee.Title, err)
			}
		}
	}
	logger.Info("Seeded fees", "students", len(students))
	return nil
}
