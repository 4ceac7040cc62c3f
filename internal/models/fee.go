package models

import (
	"strings"
	"time"
)

// FeeStatus is the backend-reported payment state of a fee.
type FeeStatus string

const (
	StatusPending FeeStatus = "pending"
	StatusPaid    FeeStatus = "paid"
	StatusOverdue FeeStatus = "overdue"
)

// Category is the bucket a fee is displayed under.
type Category string

const (
	CategoryDevelopment Category = "development"
	CategoryAdmission   Category = "admission"
	CategoryTuition     Category = "tuition"
	CategoryOther       Category = "other"
)

// Categories lists every bucket in display order.
var Categories = []Category{CategoryDevelopment, CategoryAdmission, CategoryTuition, CategoryOther}

// BucketOf maps a raw category string to its display bucket.
// "tuition" and "tuition_fee" share a bucket; empty or unknown values map to other.
func BucketOf(raw string) Category {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "development":
		return CategoryDevelopment
	case "admission":
		return CategoryAdmission
	case "tuition", "tuition_fee":
		return CategoryTuition
	default:
		return CategoryOther
	}
}

// InstallmentOptions describes an alternative schedule splitting a fee into
// Count payments of Amount each.
type InstallmentOptions struct {
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// Fee is a billable obligation assigned to a student.
type Fee struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Amount      float64   `json:"amount"`
	Deadline    Date      `json:"deadline"`
	Status      FeeStatus `json:"status"`

	// Category is kept as sent by the backend; use Bucket for display.
	Category     string `json:"category,omitempty"`
	Semester     string `json:"semester,omitempty"`
	AcademicYear string `json:"academic_year,omitempty"`

	InstallmentOptions *InstallmentOptions `json:"installment_options,omitempty"`

	// Present only once paid.
	TransactionID string     `json:"transaction_id,omitempty"`
	PaymentDate   *Timestamp `json:"payment_date,omitempty"`
}

// Bucket returns the display bucket of the fee's category.
func (f Fee) Bucket() Category {
	return BucketOf(f.Category)
}

// IsOverdue reports whether the backend flagged the fee as overdue.
func (f Fee) IsOverdue() bool {
	return f.Status == StatusOverdue
}

// Payable reports whether a pay action is offered for the fee.
// Overdue fees stay payable; late-fee handling belongs to the backend.
func (f Fee) Payable() bool {
	return f.Status == StatusPending || f.IsOverdue()
}

// MarkPaid records payment metadata on the fee.
func (f *Fee) MarkPaid(transactionID string, at time.Time) {
	f.Status = StatusPaid
	f.TransactionID = transactionID
	f.PaymentDate = &Timestamp{at}
}

// DeriveStatus applies the overdue rule to a stored status: a fee whose deadline
// is strictly before today and that is not paid is overdue.
func DeriveStatus(stored FeeStatus, deadline, today Date) FeeStatus {
	if stored == StatusPaid {
		return StatusPaid
	}
	if !deadline.IsZero() && deadline.Before(today) {
		return StatusOverdue
	}
	return StatusPending
}

// AdminFee is a fee definition as returned by the admin listing endpoint.
// It carries no per-student payment status.
type AdminFee struct {
	ID                     string   `json:"id"`
	Title                  string   `json:"title"`
	Description            string   `json:"description,omitempty"`
	Type                   string   `json:"type"`
	Amount                 float64  `json:"amount"`
	Deadline               Date     `json:"deadline"`
	Semester               string   `json:"semester,omitempty"`
	AcademicYear           string   `json:"academic_year,omitempty"`
	IsInstallmentAvailable bool     `json:"is_installment_available"`
	InstallmentCount       *int     `json:"installment_count,omitempty"`
	InstallmentAmount      *float64 `json:"installment_amount,omitempty"`
}

// ToFee converts the definition into the shape used by fee views. The listing
// endpoint does not return a live status, so every converted fee is pending;
// department-wide counts must come from PaymentStatistics instead.
func (a AdminFee) ToFee() Fee {
	fee := Fee{
		ID:           a.ID,
		Title:        a.Title,
		Description:  a.Description,
		Amount:       a.Amount,
		Deadline:     a.Deadline,
		Status:       StatusPending,
		Category:     a.Type,
		Semester:     a.Semester,
		AcademicYear: a.AcademicYear,
	}
	if a.IsInstallmentAvailable {
		opts := &InstallmentOptions{}
		if a.InstallmentCount != nil {
			opts.Count = *a.InstallmentCount
		}
		if a.InstallmentAmount != nil {
			opts.Amount = *a.InstallmentAmount
		}
		fee.InstallmentOptions = opts
	}
	return fee
}

// FeeCreate is the body of an admin fee creation request.
type FeeCreate struct {
	Title                  string   `json:"title" validate:"required"`
	Description            string   `json:"description,omitempty"`
	Type                   string   `json:"type" validate:"required,oneof=development admission tuition tuition_fee other"`
	Amount                 float64  `json:"amount" validate:"gt=0"`
	Deadline               Date     `json:"deadline" validate:"required"`
	Semester               string   `json:"semester,omitempty"`
	AcademicYear           string   `json:"academic_year,omitempty"`
	IsInstallmentAvailable bool     `json:"is_installment_available"`
	InstallmentCount       *int     `json:"installment_count,omitempty" validate:"omitempty,gte=2"`
	InstallmentAmount      *float64 `json:"installment_amount,omitempty" validate:"omitempty,gt=0"`
}

// FeeUpdate is the body of a partial admin fee update. Nil fields are left unchanged.
type FeeUpdate struct {
	Title                  *string  `json:"title,omitempty" validate:"omitempty,min=1"`
	Description            *string  `json:"description,omitempty"`
	Type                   *string  `json:"type,omitempty" validate:"omitempty,oneof=development admission tuition tuition_fee other"`
	Amount                 *float64 `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Deadline               *Date    `json:"deadline,omitempty"`
	Semester               *string  `json:"semester,omitempty"`
	AcademicYear           *string  `json:"academic_year,omitempty"`
	IsInstallmentAvailable *bool    `json:"is_installment_available,omitempty"`
	InstallmentCount       *int     `json:"installment_count,omitempty" validate:"omitempty,gte=2"`
	InstallmentAmount      *float64 `json:"installment_amount,omitempty" validate:"omitempty,gt=0"`
}

// Apply copies the set fields of u onto a.
func (u FeeUpdate) Apply(a *AdminFee) {
	if u.Title != nil {
		a.Title = *u.Title
	}
	if u.Description != nil {
		a.Description = *u.Description
	}
	if u.Type != nil {
		a.Type = *u.Type
	}
	if u.Amount != nil {
		a.Amount = *u.Amount
	}
	if u.Deadline != nil {
		a.Deadline = *u.Deadline
	}
	if u.Semester != nil {
		a.Semester = *u.Semester
	}
	if u.AcademicYear != nil {
		a.AcademicYear = *u.AcademicYear
	}
	if u.IsInstallmentAvailable != nil {
		a.IsInstallmentAvailable = *u.IsInstallmentAvailable
	}
	if u.InstallmentCount != nil {
		a.InstallmentCount = u.InstallmentCount
	}
	if u.InstallmentAmount != nil {
		a.InstallmentAmount = u.InstallmentAmount
	}
}
