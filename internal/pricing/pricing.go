// Package pricing computes the amount a payer must remit for a fee.
package pricing

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

var (
	// surchargeRate is the percentage part of the card processing fee.
	surchargeRate = decimal.RequireFromString("0.029")
	// flatFee is added to every non-zero payment.
	flatFee = decimal.NewFromInt(25)
)

// ErrInvalidAmount is returned by ValidateAmount for negative, NaN or infinite amounts.
var ErrInvalidAmount = errors.New("amount must be a non-negative number")

// ValidateAmount rejects amounts the calculator is not defined for.
// Callers check input with it before asking for a price.
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ProcessingFee returns the card surcharge for baseAmount:
//
//	round2(baseAmount × 0.029 + 25)
//
// rounded half away from zero. A zero (or invalid) base yields 0.
func ProcessingFee(baseAmount float64) float64 {
	if baseAmount <= 0 || ValidateAmount(baseAmount) != nil {
		return 0
	}
	fee := decimal.NewFromFloat(baseAmount).Mul(surchargeRate).Add(flatFee).Round(2)
	return fee.InexactFloat64()
}

// TotalPayable returns baseAmount plus its processing fee.
func TotalPayable(baseAmount float64) float64 {
	return baseAmount + ProcessingFee(baseAmount)
}

// Quote is a price breakdown for display.
type Quote struct {
	Base          float64
	ProcessingFee float64
	Total         float64
}

// QuoteFor returns the breakdown for baseAmount.
func QuoteFor(baseAmount float64) Quote {
	fee := ProcessingFee(baseAmount)
	return Quote{
		Base:          baseAmount,
		ProcessingFee: fee,
		Total:         baseAmount + fee,
	}
}

// InstallmentAmount splits total into count equal payments rounded to two places.
// It returns 0 when count is below 2, since a single payment is not an installment plan.
func InstallmentAmount(total float64, count int) float64 {
	if count < 2 || ValidateAmount(total) != nil {
		return 0
	}
	per := decimal.NewFromFloat(total).DivRound(decimal.NewFromInt(int64(count)), 2)
	return per.InexactFloat64()
}
