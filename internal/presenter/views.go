package presenter

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/deptportal/internal/models"
)

// Partition groups fees by display bucket. Every bucket in models.Categories is
// present, possibly empty, and every fee lands in exactly one bucket.
func Partition(fees []models.Fee) map[models.Category][]models.Fee {
	out := make(map[models.Category][]models.Fee, len(models.Categories))
	for _, c := range models.Categories {
		out[c] = []models.Fee{}
	}
	for _, fee := range fees {
		b := fee.Bucket()
		out[b] = append(out[b], fee)
	}
	return out
}

// ByStatus groups fees by status. Unknown statuses are grouped under their own key.
func ByStatus(fees []models.Fee) map[models.FeeStatus][]models.Fee {
	out := map[models.FeeStatus][]models.Fee{
		models.StatusPending: {},
		models.StatusPaid:    {},
		models.StatusOverdue: {},
	}
	for _, fee := range fees {
		out[fee.Status] = append(out[fee.Status], fee)
	}
	return out
}

// Payable returns the fees that offer a pay action.
func Payable(fees []models.Fee) []models.Fee {
	var out []models.Fee
	for _, fee := range fees {
		if fee.Payable() {
			out = append(out, fee)
		}
	}
	return out
}

// Totals summarizes a student's obligations.
type Totals struct {
	TotalDue      float64
	TotalPaid     float64
	OverdueAmount float64
	PendingCount  int
	PaidCount     int
	OverdueCount  int
}

// Summarize computes totals from the fee list and payment history. Due amounts
// come from unpaid fees; paid amounts come from the history.
func Summarize(fees []models.Fee, history []models.PaymentRecord) Totals {
	var t Totals
	due, overdue, paid := decimal.Zero, decimal.Zero, decimal.Zero

	for _, fee := range fees {
		switch fee.Status {
		case models.StatusPending:
			t.PendingCount++
			due = due.Add(decimal.NewFromFloat(fee.Amount))
		case models.StatusOverdue:
			t.OverdueCount++
			due = due.Add(decimal.NewFromFloat(fee.Amount))
			overdue = overdue.Add(decimal.NewFromFloat(fee.Amount))
		case models.StatusPaid:
			t.PaidCount++
		}
	}
	for _, rec := range history {
		paid = paid.Add(decimal.NewFromFloat(rec.AmountPaid))
	}

	t.TotalDue = due.Round(2).InexactFloat64()
	t.OverdueAmount = overdue.Round(2).InexactFloat64()
	t.TotalPaid = paid.Round(2).InexactFloat64()
	return t
}

// Categories partitions the current fee collection.
func (p *Presenter) Categories() map[models.Category][]models.Fee {
	return Partition(p.State().Fees)
}

// ByStatus partitions the current fee collection by status.
func (p *Presenter) ByStatus() map[models.FeeStatus][]models.Fee {
	return ByStatus(p.State().Fees)
}

// PayableFees returns the fees in the current collection that can be paid.
func (p *Presenter) PayableFees() []models.Fee {
	return Payable(p.State().Fees)
}

// Fee looks up a fee in the current collection.
func (p *Presenter) Fee(id string) (models.Fee, bool) {
	for _, fee := range p.State().Fees {
		if fee.ID == id {
			return fee, true
		}
	}
	return models.Fee{}, false
}

// Totals summarizes the current fees and history.
func (p *Presenter) Totals() Totals {
	st := p.State()
	return Summarize(st.Fees, st.History)
}
