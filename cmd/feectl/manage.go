package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/mmynk/deptportal/internal/admin"
	"github.com/mmynk/deptportal/internal/models"
)

func (a *app) manager() (*admin.Manager, error) {
	c, err := a.client()
	if err != nil {
		return nil, err
	}
	return admin.NewManager(c, c.Session(), a.logger), nil
}

func (a *app) feeAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fee-add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	title := fs.String("title", "", "fee title")
	category := fs.String("type", "other", "development, admission, tuition_fee or other")
	amount := fs.Float64("amount", 0, "amount in the portal currency")
	deadline := fs.String("deadline", "", "due date, YYYY-MM-DD")
	semester := fs.String("semester", "", "semester label")
	count := fs.Int("installments", 0, "number of installments, 0 for none")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *title == "" || *amount <= 0 || *deadline == "" {
		return fmt.Errorf("%w: fee-add needs -title, -amount and -deadline", errUsage)
	}
	due, err := models.ParseDate(*deadline)
	if err != nil {
		return fmt.Errorf("%w: bad -deadline: %v", errUsage, err)
	}

	req := models.FeeCreate{
		Title:    *title,
		Type:     *category,
		Amount:   *amount,
		Deadline: due,
		Semester: *semester,
	}
	if *count > 0 {
		req.IsInstallmentAvailable = true
		req.InstallmentCount = count
	}

	m, err := a.manager()
	if err != nil {
		return err
	}
	fee, err := m.CreateFee(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created fee %s (%s, %s, due %s).\n", fee.ID, fee.Title, a.money(fee.Amount), fee.Deadline)
	return nil
}

func (a *app) feeRemove(ctx context.Context, feeID string) error {
	m, err := a.manager()
	if err != nil {
		return err
	}
	if err := m.DeleteFee(ctx, feeID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted fee %s.\n", feeID)
	return nil
}

func (a *app) assign(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("assign", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	amount := fs.Float64("amount", 0, "amount due, defaults to the full fee")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("%w: assign needs <fee-id> <student-id>", errUsage)
	}
	var due *float64
	if *amount > 0 {
		due = amount
	}

	m, err := a.manager()
	if err != nil {
		return err
	}
	sf, err := m.AssignFee(ctx, fs.Arg(0), fs.Arg(1), due)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Assigned %s to %s: %s due.\n", sf.FeeID, sf.StudentID, a.money(sf.AmountDue))
	return nil
}
