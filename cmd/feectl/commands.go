package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/mmynk/deptportal/internal/admin"
	"github.com/mmynk/deptportal/internal/models"
	"github.com/mmynk/deptportal/internal/payment"
	"github.com/mmynk/deptportal/internal/presenter"
	"github.com/mmynk/deptportal/internal/session"
)

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	var err error
	if *email == "" {
		if *email, err = a.prompt.ask("Email"); err != nil {
			return err
		}
	}
	password, err := a.prompt.secret("Password")
	if err != nil {
		return err
	}

	resp, err := a.newClient(session.Anonymous()).Login(ctx, *email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := a.sessions.Save(resp.AccessToken); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s).\n", resp.User.Name, resp.User.Role)
	return nil
}

func (a *app) fees(ctx context.Context) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	p := presenter.New(c, c.Session(), presenter.WithLogger(a.logger), presenter.WithMetrics(a.metrics))
	if err := p.Refresh(ctx); err != nil {
		return err
	}

	if s, ok := c.Session().(session.Static); ok && s.Name() != "" {
		fmt.Fprintf(a.out, "Fees for %s\n", s.Name())
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	buckets := p.Categories()
	for _, cat := range models.Categories {
		fees := buckets[cat]
		if len(fees) == 0 {
			continue
		}
		fmt.Fprintf(tw, "\n%s\n", strings.ToUpper(string(cat)))
		fmt.Fprintln(tw, "ID\tTITLE\tAMOUNT\tDEADLINE\tSTATUS\tINSTALLMENTS")
		for _, f := range fees {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				f.ID, f.Title, a.money(f.Amount), f.Deadline, f.Status, installments(f, a.money))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	t := p.Totals()
	fmt.Fprintf(a.out, "\nDue: %s (%d pending, %d overdue)  Overdue: %s  Paid: %s\n",
		a.money(t.TotalDue), t.PendingCount, t.OverdueCount, a.money(t.OverdueAmount), a.money(t.TotalPaid))
	if err := p.State().HistoryErr; err != nil {
		fmt.Fprintf(a.out, "Payment history unavailable: %v\n", err)
	}
	return nil
}

func (a *app) history(ctx context.Context) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	p := presenter.New(c, c.Session(), presenter.WithLogger(a.logger), presenter.WithMetrics(a.metrics))
	if err := p.LoadHistory(ctx); err != nil {
		return err
	}
	return a.printHistory(p.State().History, false)
}

func (a *app) printHistory(records []models.PaymentRecord, withStudent bool) error {
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No payments yet.")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	header := "DATE\tFEE\tAMOUNT\tMETHOD\tTRANSACTION"
	if withStudent {
		header = "DATE\tSTUDENT\tFEE\tAMOUNT\tMETHOD\tTRANSACTION"
	}
	fmt.Fprintln(tw, header)
	for _, rec := range records {
		date := "-"
		if rec.PaymentDate != nil {
			date = rec.PaymentDate.Format("2006-01-02 15:04")
		}
		if withStudent {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", date, rec.StudentName, rec.FeeTitle,
				a.money(rec.AmountPaid), rec.PaymentMethod.Label(), rec.TransactionID)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", date, rec.FeeTitle,
			a.money(rec.AmountPaid), rec.PaymentMethod.Label(), rec.TransactionID)
	}
	return tw.Flush()
}

func (a *app) pay(ctx context.Context, feeID string) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	p := presenter.New(c, c.Session(), presenter.WithLogger(a.logger), presenter.WithMetrics(a.metrics))
	if err := p.LoadFees(ctx); err != nil {
		return err
	}
	fee, ok := p.Fee(feeID)
	if !ok {
		return fmt.Errorf("fee %s not found", feeID)
	}

	ctrl, err := payment.Open(c.Session(), fee, c, p, payment.Options{
		Currency:       a.cfg.Currency,
		Timeout:        a.cfg.GatewayTimeout,
		SimulatedDelay: a.cfg.GatewayDelay,
		AutoCloseDelay: a.cfg.AutoCloseDelay,
		Logger:         a.logger,
		Metrics:        a.metrics,
		OnChange: func(v payment.View) {
			if v.Step == payment.StepProcessing {
				fmt.Fprintln(a.out, "Processing payment...")
			}
		},
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	q := ctrl.View().Quote
	fmt.Fprintf(a.out, "%s\n  Amount:          %s\n  Processing fee:  %s\n  Total:           %s\n",
		fee.Title, a.money(q.Base), a.money(q.ProcessingFee), a.money(q.Total))

	for {
		card, err := a.readCard()
		if err != nil {
			return err
		}
		if err := ctrl.SetDetails(card); err != nil {
			return err
		}
		if err := ctrl.Submit(ctx); errors.Is(err, payment.ErrIncompleteDetails) {
			fmt.Fprintln(a.out, "All card fields are required.")
			continue
		} else if err != nil {
			return err
		}

		v := ctrl.View()
		switch v.Step {
		case payment.StepSuccess:
			fmt.Fprintf(a.out, "Payment successful. Transaction: %s\n", v.TransactionID)
		case payment.StepError:
			fmt.Fprintf(a.out, "Payment failed: %s\n", v.Message)
			if !a.prompt.confirm("Try again?") {
				return errors.New("payment not completed")
			}
			if err := ctrl.Retry(); err != nil {
				return err
			}
			continue
		default:
			return errors.New("payment cancelled")
		}
		break
	}

	select {
	case <-ctrl.Done():
	case <-ctx.Done():
	}

	st := p.State()
	if st.Unconfirmed {
		fmt.Fprintf(a.out, "Fee marked paid locally; refresh failed: %v\n", st.ReconcileErr)
	}
	if paid, ok := p.Fee(feeID); ok {
		fmt.Fprintf(a.out, "%s is now %s.\n", paid.Title, paid.Status)
	}
	return nil
}

func (a *app) readCard() (payment.CardDetails, error) {
	var card payment.CardDetails
	var err error
	if card.HolderName, err = a.prompt.ask("Cardholder name"); err != nil {
		return card, err
	}
	if card.Number, err = a.prompt.secret("Card number"); err != nil {
		return card, err
	}
	if card.Expiry, err = a.prompt.ask("Expiry (MM/YY)"); err != nil {
		return card, err
	}
	if card.CVV, err = a.prompt.secret("CVV"); err != nil {
		return card, err
	}
	return card, nil
}

func (a *app) stats(ctx context.Context) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	d, err := admin.New(c, c.Session(), a.logger, a.metrics).Load(ctx)
	if err != nil {
		return err
	}

	paid, pending, overdue := d.Counts()
	fmt.Fprintf(a.out, "Total due: %s  Total paid: %s\n", a.money(d.Stats.TotalDue), a.money(d.Stats.TotalPaid))
	fmt.Fprintf(a.out, "Paid: %d  Pending: %d  Overdue: %d\n", paid, pending, overdue)

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, cat := range models.Categories {
		fees := d.Categories[cat]
		if len(fees) == 0 {
			continue
		}
		fmt.Fprintf(tw, "\n%s\n", strings.ToUpper(string(cat)))
		for _, f := range fees {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Title, a.money(f.Amount), f.Deadline, installments(f, a.money))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "\nPayments")
	return a.printHistory(d.Stats.PaymentHistory, true)
}

func (a *app) money(v float64) string {
	return strings.ToUpper(a.cfg.Currency) + " " + decimal.NewFromFloat(v).StringFixed(2)
}

func installments(f models.Fee, money func(float64) string) string {
	opts := f.InstallmentOptions
	if opts == nil || opts.Count == 0 {
		return "-"
	}
	return fmt.Sprintf("%d x %s", opts.Count, money(opts.Amount))
}
