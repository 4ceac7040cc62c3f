// Package gateway simulates a card payment processor with a Stripe-like
// intent/confirm flow. No money moves; outcomes depend only on the payment
// method id, mirroring Stripe's test payment methods.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrUnsupportedCurrency  = errors.New("unsupported currency")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
)

// Intent statuses.
const (
	StatusRequiresConfirmation  = "requires_confirmation"
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusSucceeded             = "succeeded"
)

// DeclinedPaymentMethod always fails confirmation.
const DeclinedPaymentMethod = "pm_card_declined"

// Intent is a reserved charge awaiting confirmation.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       float64
	// AmountMinor is the amount in the currency's minor unit (paisa, cents).
	AmountMinor int64
	Currency    string
}

// Charge is the outcome of a confirmation.
type Charge struct {
	Status        string
	TransactionID string
}

// Succeeded reports whether the charge went through.
func (c Charge) Succeeded() bool {
	return c.Status == StatusSucceeded
}

// Simulator is a stateless fake processor.
type Simulator struct {
	currencies map[string]bool
	logger     *slog.Logger
}

// NewSimulator accepts the given currencies (lower-case ISO codes).
func NewSimulator(logger *slog.Logger, currencies ...string) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	accepted := make(map[string]bool, len(currencies))
	for _, c := range currencies {
		accepted[strings.ToLower(c)] = true
	}
	return &Simulator{currencies: accepted, logger: logger}
}

// CreateIntent reserves a charge of amount in currency.
func (s *Simulator) CreateIntent(ctx context.Context, amount float64, currency string) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	currency = strings.ToLower(currency)
	if !s.currencies[currency] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, currency)
	}

	id := "pi_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	intent := &Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16],
		Status:       StatusRequiresConfirmation,
		Amount:       amount,
		AmountMinor:  decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart(),
		Currency:     currency,
	}
	s.logger.Debug("Created payment intent", "intent_id", id, "amount_minor", intent.AmountMinor, "currency", currency)
	return intent, nil
}

// Confirm settles an intent with a payment method. A declined method yields a
// charge with StatusRequiresPaymentMethod and no error.
func (s *Simulator) Confirm(ctx context.Context, intentID, paymentMethodID string) (*Charge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(paymentMethodID, "pm_") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, paymentMethodID)
	}

	if paymentMethodID == DeclinedPaymentMethod {
		s.logger.Info("Payment declined", "intent_id", intentID)
		return &Charge{Status: StatusRequiresPaymentMethod}, nil
	}

	// Stripe reports the intent id as the transaction reference.
	return &Charge{Status: StatusSucceeded, TransactionID: intentID}, nil
}
