// Package admin builds the department-wide billing dashboard.
//
// Totals and counts are taken from the backend's statistics payload as-is.
// The fee listing carries no per-student status, so every listed fee shows as
// pending; use Dashboard.Stats for paid and overdue figures.
package admin

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/deptportal/internal/metrics"
	"github.com/mmynk/deptportal/internal/models"
	"github.com/mmynk/deptportal/internal/policy"
	"github.com/mmynk/deptportal/internal/presenter"
	"github.com/mmynk/deptportal/internal/pricing"
	"github.com/mmynk/deptportal/internal/session"
)

// Source fetches department-wide data. *client.Client satisfies it.
type Source interface {
	GetAllFees(ctx context.Context) ([]models.AdminFee, error)
	GetPaymentStatistics(ctx context.Context) (*models.PaymentStatistics, error)
}

// Dashboard is one admin page load.
type Dashboard struct {
	Fees       []models.Fee
	Categories map[models.Category][]models.Fee
	Stats      models.PaymentStatistics
}

// ByStatus partitions the listed fees by status, in the same shape the
// student presenter uses.
func (d Dashboard) ByStatus() map[models.FeeStatus][]models.Fee {
	return presenter.ByStatus(d.Fees)
}

// Counts returns the backend's paid, pending and overdue counts.
func (d Dashboard) Counts() (paid, pending, overdue int) {
	return d.Stats.PaidFeesCount, d.Stats.PendingFeesCount, d.Stats.OverdueFeesCount
}

// Aggregator loads dashboards for admin sessions.
type Aggregator struct {
	source  Source
	session session.Session
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates an aggregator. logger and m may be nil.
func New(source Source, s session.Session, logger *slog.Logger, m *metrics.Metrics) *Aggregator {
	if s == nil {
		s = session.Anonymous()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{source: source, session: s, logger: logger, metrics: m}
}

// Load fetches fee definitions and statistics in parallel. Non-admin sessions
// are refused before any request is made.
func (a *Aggregator) Load(ctx context.Context) (*Dashboard, error) {
	for _, action := range []policy.Action{policy.ActionViewAllFees, policy.ActionViewStats} {
		if err := policy.Authorize(a.session, action); err != nil {
			return nil, err
		}
	}

	var (
		fees  []models.AdminFee
		stats *models.PaymentStatistics
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fees, err = a.source.GetAllFees(gctx)
		a.metrics.ObserveFeeLoad("admin", err)
		if err != nil {
			return fmt.Errorf("failed to load fees: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		stats, err = a.source.GetPaymentStatistics(gctx)
		if err != nil {
			return fmt.Errorf("failed to load payment statistics: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		a.logger.Warn("Failed to load admin dashboard", "error", err)
		return nil, err
	}

	converted := make([]models.Fee, 0, len(fees))
	for _, f := range fees {
		fee := f.ToFee()
		if opts := fee.InstallmentOptions; opts != nil && opts.Amount == 0 {
			opts.Amount = pricing.InstallmentAmount(fee.Amount, opts.Count)
		}
		converted = append(converted, fee)
	}

	d := &Dashboard{
		Fees:       converted,
		Categories: presenter.Partition(converted),
	}
	if stats != nil {
		d.Stats = *stats
	}
	a.logger.Debug("Loaded admin dashboard", "fees", len(converted), "history", len(d.Stats.PaymentHistory))
	return d, nil
}
