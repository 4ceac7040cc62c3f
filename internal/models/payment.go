package models

// PaymentMethod identifies how a payment was made.
type PaymentMethod string

const (
	MethodStripe       PaymentMethod = "stripe"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCash         PaymentMethod = "cash"
)

// Label returns the human-readable name of a payment method.
func (m PaymentMethod) Label() string {
	switch m {
	case MethodStripe:
		return "Credit Card (Stripe)"
	case MethodBankTransfer:
		return "Bank Transfer"
	case MethodCash:
		return "Cash"
	default:
		return string(m)
	}
}

// CreateIntentRequest asks the gateway adapter to reserve a charge for a student fee.
type CreateIntentRequest struct {
	StudentFeeID string  `json:"student_fee_id" validate:"required"`
	Amount       float64 `json:"amount" validate:"gt=0"`
	Currency     string  `json:"currency" validate:"required"`
}

// PaymentIntent is the gateway placeholder created before confirmation.
type PaymentIntent struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret,omitempty"`
}

// ConfirmRequest confirms a previously created intent.
type ConfirmRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
}

// ConfirmResult is the outcome of a confirmation. Success=false carries a Message.
type ConfirmResult struct {
	Success       bool   `json:"success"`
	PaymentID     string `json:"payment_id,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Message       string `json:"message,omitempty"`
	Status        string `json:"status,omitempty"`
}

// PaymentRecord is one entry of a payment history.
type PaymentRecord struct {
	ID            string        `json:"id"`
	FeeTitle      string        `json:"fee_title"`
	AmountPaid    float64       `json:"amount_paid"`
	PaymentDate   *Timestamp    `json:"payment_date,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Status        FeeStatus     `json:"status"`

	// StudentName is only set in the department-wide history.
	StudentName string `json:"student_name,omitempty"`
}

// PaymentStatistics is the backend-computed department-wide billing summary.
type PaymentStatistics struct {
	TotalDue         float64         `json:"total_due"`
	TotalPaid        float64         `json:"total_paid"`
	PaidFeesCount    int             `json:"paid_fees_count"`
	PendingFeesCount int             `json:"pending_fees_count"`
	OverdueFeesCount int             `json:"overdue_fees_count"`
	PaymentHistory   []PaymentRecord `json:"payment_history"`
}

// AssignFeeRequest is the body of an admin fee assignment.
// A nil AmountDue assigns the fee's full amount.
type AssignFeeRequest struct {
	AmountDue *float64 `json:"amount_due,omitempty" validate:"omitempty,gt=0"`
}

// StudentFee is the assignment of a fee definition to one student.
type StudentFee struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	FeeID      string    `json:"fee_id"`
	AmountDue  float64   `json:"amount_due"`
	AmountPaid float64   `json:"amount_paid"`
	Status     FeeStatus `json:"status"`
	CreatedAt  int64     `json:"created_at"`
}

// LoginRequest and LoginResponse are the session bootstrap contract.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}
