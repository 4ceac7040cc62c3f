package server

import (
	"context"
	"testing"
	"time"

	"github.com/mmynk/deptportal/internal/admin"
	"github.com/mmynk/deptportal/internal/models"
	"github.com/mmynk/deptportal/internal/payment"
	"github.com/mmynk/deptportal/internal/presenter"
	"github.com/mmynk/deptportal/pkg/logging"
)

func TestStudentPaysThroughPortal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.student(t)

	p := presenter.New(student, student.Session(),
		presenter.WithLogger(logging.Discard()),
		presenter.WithMetrics(env.metrics),
	)
	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	fee, ok := p.Fee(feeByTitle(t, p.State().Fees, "Development Fee").ID)
	if !ok {
		t.Fatal("development fee missing from presenter")
	}

	t.Run("declined card can be retried", func(t *testing.T) {
		c, err := payment.Open(student.Session(), fee, student, p, payment.Options{
			Timeout: 5 * time.Second,
			Logger:  logging.Discard(),
		})
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer c.Close()

		card := payment.CardDetails{HolderName: "Rahim Uddin", Number: "4000 0000 0000 0002", Expiry: "12/27", CVV: "123"}
		if err := c.SetDetails(card); err != nil {
			t.Fatalf("SetDetails failed: %v", err)
		}
		if err := c.Submit(ctx); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		v := c.View()
		if v.Step != payment.StepError || v.Message != "Payment not successful" {
			t.Errorf("view = %+v, want declined error", v)
		}
		if err := c.Retry(); err != nil {
			t.Fatalf("Retry failed: %v", err)
		}
		if got := c.View(); got.Step != payment.StepDetails || got.Card != card {
			t.Errorf("after retry view = %+v, want details with card kept", got)
		}
	})

	t.Run("successful payment reconciles fees", func(t *testing.T) {
		c, err := payment.Open(student.Session(), fee, student, p, payment.Options{
			Timeout:        5 * time.Second,
			AutoCloseDelay: time.Hour,
			Logger:         logging.Discard(),
			Metrics:        env.metrics,
		})
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer c.Close()

		if err := c.SetDetails(payment.CardDetails{HolderName: "Rahim Uddin", Number: "4242424242424242", Expiry: "12/27", CVV: "123"}); err != nil {
			t.Fatalf("SetDetails failed: %v", err)
		}
		if err := c.Submit(ctx); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		v := c.View()
		if v.Step != payment.StepSuccess || v.TransactionID == "" {
			t.Fatalf("view = %+v, want success", v)
		}

		state := p.State()
		if state.Unconfirmed || state.ReconcileErr != nil {
			t.Errorf("state unconfirmed=%v reconcileErr=%v, want reconciled", state.Unconfirmed, state.ReconcileErr)
		}
		paid, _ := p.Fee(fee.ID)
		if paid.Status != models.StatusPaid || paid.TransactionID != v.TransactionID {
			t.Errorf("fee = %+v, want paid with %s", paid, v.TransactionID)
		}
		if len(state.History) != 1 || state.History[0].FeeTitle != "Development Fee" {
			t.Errorf("history = %+v, want the development payment", state.History)
		}

		totals := p.Totals()
		if totals.TotalPaid != 5000 || totals.PaidCount != 1 || totals.OverdueCount != 1 {
			t.Errorf("totals = %+v, want 5000 paid over one fee and one overdue", totals)
		}
	})

	t.Run("admin dashboard reflects the payment", func(t *testing.T) {
		adminClient := env.admin(t)
		agg := admin.New(adminClient, adminClient.Session(), logging.Discard(), env.metrics)
		d, err := agg.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		paid, pending, overdue := d.Counts()
		if paid != 1 || pending != 5 || overdue != 2 {
			t.Errorf("counts = %d/%d/%d, want 1/5/2", paid, pending, overdue)
		}
		if len(d.Categories[models.CategoryTuition]) != 1 || d.Categories[models.CategoryTuition][0].InstallmentOptions.Amount != 15000 {
			t.Errorf("tuition bucket = %+v, want one fee with 15000 installments", d.Categories[models.CategoryTuition])
		}
	})
}
