// Package presenter keeps a student's fee list and payment history and derives
// the partitioned views shown on the fee dashboard.
//
// The fee collection is only ever replaced wholesale by a fetch. The single
// exception is the optimistic patch applied when a payment completes, which
// marks the collection unconfirmed until the reconciling fetch lands.
package presenter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mmynk/deptportal/internal/metrics"
	"github.com/mmynk/deptportal/internal/models"
	"github.com/mmynk/deptportal/internal/policy"
	"github.com/mmynk/deptportal/internal/pricing"
	"github.com/mmynk/deptportal/internal/session"
)

// Source fetches authoritative student data. *client.Client satisfies it.
type Source interface {
	GetMyFees(ctx context.Context) ([]models.Fee, error)
	GetPaymentHistory(ctx context.Context) ([]models.PaymentRecord, error)
}

// State is a snapshot of the presenter.
type State struct {
	Fees    []models.Fee
	History []models.PaymentRecord
	Loaded  bool

	// LoadErr is the last fee fetch failure; Retry re-issues the fetch.
	LoadErr error
	// HistoryErr is the last history fetch failure.
	HistoryErr error
	// Unconfirmed is set while Fees carries an optimistic patch that no
	// authoritative fetch has replaced yet.
	Unconfirmed bool
	// ReconcileErr is the failure of the fetch issued after a payment. It is
	// distinct from LoadErr: the payment itself succeeded.
	ReconcileErr error
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithLogger sets the presenter's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Presenter) { p.logger = logger }
}

// WithMetrics records fetches and reconciliations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Presenter) { p.metrics = m }
}

// WithClock overrides time.Now for payment timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Presenter) { p.now = now }
}

// Presenter is safe for concurrent use.
type Presenter struct {
	source  Source
	session session.Session
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	flight  singleflight.Group

	mu      sync.RWMutex
	issued  uint64 // last generation handed out
	applied uint64 // generation of the data currently held
	state   State
}

const loadKey = "my-fees"

// New creates a presenter reading through source on behalf of s.
func New(source Source, s session.Session, opts ...Option) *Presenter {
	if s == nil {
		s = session.Anonymous()
	}
	p := &Presenter{
		source:  source,
		session: s,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns a copy of the current state.
func (p *Presenter) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st := p.state
	st.Fees = append([]models.Fee(nil), p.state.Fees...)
	st.History = append([]models.PaymentRecord(nil), p.state.History...)
	return st
}

// LoadFees fetches the fee list and replaces the local collection. Concurrent
// calls share one request.
func (p *Presenter) LoadFees(ctx context.Context) error {
	if err := policy.Authorize(p.session, policy.ActionViewOwnFees); err != nil {
		p.setLoadErr(err)
		return err
	}
	_, err, _ := p.flight.Do(loadKey, func() (any, error) {
		return nil, p.fetchFees(ctx, false)
	})
	return err
}

// Retry re-issues a failed fee fetch.
func (p *Presenter) Retry(ctx context.Context) error {
	return p.LoadFees(ctx)
}

// LoadHistory fetches the payment history.
func (p *Presenter) LoadHistory(ctx context.Context) error {
	if err := policy.Authorize(p.session, policy.ActionViewHistory); err != nil {
		return err
	}
	history, err := p.source.GetPaymentHistory(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.logger.Warn("Failed to load payment history", "error", err)
		p.state.HistoryErr = err
		return fmt.Errorf("failed to load payment history: %w", err)
	}
	p.state.History = history
	p.state.HistoryErr = nil
	return nil
}

// Refresh loads fees and history in parallel. Neither fetch cancels the
// other. Only the fee error is returned; a history failure is left in
// HistoryErr.
func (p *Presenter) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return p.LoadFees(ctx) })
	g.Go(func() error {
		_ = p.LoadHistory(ctx)
		return nil
	})
	return g.Wait()
}

// PaymentCompleted patches the paid fee locally and then refetches the whole
// collection. If the refetch fails the patch stays visible, flagged as
// unconfirmed, and the failure is exposed as ReconcileErr.
func (p *Presenter) PaymentCompleted(ctx context.Context, feeID string, method models.PaymentMethod, transactionID string) {
	p.mu.Lock()
	p.issued++
	p.applied = p.issued
	for i := range p.state.Fees {
		if p.state.Fees[i].ID == feeID {
			p.state.Fees[i].MarkPaid(transactionID, p.now())
			break
		}
	}
	p.state.Unconfirmed = true
	p.mu.Unlock()

	p.logger.Info("Payment completed, reconciling fees", "fee_id", feeID, "method", method, "transaction_id", transactionID)

	// Never join a fetch issued before the patch: it may predate the payment.
	p.flight.Forget(loadKey)
	_, err, _ := p.flight.Do(loadKey, func() (any, error) {
		return nil, p.fetchFees(ctx, true)
	})
	p.metrics.ObserveReconcile(err)

	// History is best effort here; its error is kept in HistoryErr.
	_ = p.LoadHistory(ctx)
}

func (p *Presenter) fetchFees(ctx context.Context, reconcile bool) error {
	p.mu.Lock()
	p.issued++
	gen := p.issued
	p.mu.Unlock()

	fees, err := p.source.GetMyFees(ctx)
	p.metrics.ObserveFeeLoad("student", err)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen < p.applied {
		p.logger.Debug("Discarding stale fee response", "generation", gen, "applied", p.applied)
		return err
	}
	p.applied = gen

	if err != nil {
		if reconcile {
			p.logger.Warn("Failed to reconcile fees after payment", "error", err)
			p.state.ReconcileErr = err
		} else {
			p.logger.Warn("Failed to load fees", "error", err)
			p.state.LoadErr = err
		}
		return fmt.Errorf("failed to load fees: %w", err)
	}

	p.state.Fees = withInstallments(fees)
	p.state.Loaded = true
	p.state.LoadErr = nil
	p.state.ReconcileErr = nil
	p.state.Unconfirmed = false
	return nil
}

func (p *Presenter) setLoadErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.LoadErr = err
}

// withInstallments fills in per-installment amounts the backend left at zero.
func withInstallments(fees []models.Fee) []models.Fee {
	out := make([]models.Fee, len(fees))
	for i, fee := range fees {
		if opts := fee.InstallmentOptions; opts != nil && opts.Amount == 0 && opts.Count >= 2 {
			derived := *opts
			derived.Amount = pricing.InstallmentAmount(fee.Amount, opts.Count)
			fee.InstallmentOptions = &derived
		}
		out[i] = fee
	}
	return out
}
