// Package payment drives a single card payment attempt for one fee.
//
// An attempt moves through details -> processing -> success, or
// details -> processing -> error -> details when the user retries. Closing
// discards the attempt from any step. Each Controller owns exactly one fee and
// is never shared between fees.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mmynk/deptportal/internal/metrics"
	"github.com/mmynk/deptportal/internal/models"
	"github.com/mmynk/deptportal/internal/policy"
	"github.com/mmynk/deptportal/internal/pricing"
	"github.com/mmynk/deptportal/internal/session"
)

// Sentinel errors returned by Open and the attempt operations.
var (
	ErrIneligiblePayer   = errors.New("fee is not payable by this actor")
	ErrFeeNotPayable     = errors.New("fee is already paid")
	ErrIncompleteDetails = errors.New("all card fields are required")
	ErrAttemptInFlight   = errors.New("a payment is already being processed")
	ErrWrongStep         = errors.New("action not allowed in the current payment step")
	ErrNotRetryable      = errors.New("only a failed payment can be retried")
	ErrClosed            = errors.New("payment attempt is closed")
	ErrGatewayTimeout    = errors.New("payment gateway did not respond in time")
	ErrNoConfirmation    = errors.New("payment gateway returned no confirmation")
)

// Step is the position of an attempt in the payment state machine.
type Step string

const (
	StepDetails    Step = "details"
	StepProcessing Step = "processing"
	StepSuccess    Step = "success"
	StepError      Step = "error"
	StepClosed     Step = "closed"
)

// Stripe test card that the simulated gateway always declines.
const declinedTestCard = "4000000000000002"

// Gateway creates and confirms payment intents. *client.Client satisfies it.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, req models.CreateIntentRequest) (*models.PaymentIntent, error)
	ConfirmPayment(ctx context.Context, req models.ConfirmRequest) (*models.ConfirmResult, error)
}

// Notifier is told about every confirmed payment.
type Notifier interface {
	PaymentCompleted(ctx context.Context, feeID string, method models.PaymentMethod, transactionID string)
}

// CardDetails are the fields typed into the card form. They gate submission
// locally and are never sent to the backend.
type CardDetails struct {
	HolderName string
	Number     string
	Expiry     string
	CVV        string
}

// Complete reports whether every field is non-empty.
func (c CardDetails) Complete() bool {
	return strings.TrimSpace(c.HolderName) != "" &&
		strings.TrimSpace(c.Number) != "" &&
		strings.TrimSpace(c.Expiry) != "" &&
		strings.TrimSpace(c.CVV) != ""
}

// paymentMethodID stands in for the gateway's card tokenization step.
func (c CardDetails) paymentMethodID() string {
	digits := strings.NewReplacer(" ", "", "-", "").Replace(c.Number)
	if digits == declinedTestCard {
		return "pm_card_declined"
	}
	return "pm_card_visa"
}

// Options tune a Controller. Zero values take the defaults below.
type Options struct {
	Currency       string
	Timeout        time.Duration
	SimulatedDelay time.Duration
	AutoCloseDelay time.Duration
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	// OnChange is called after every state transition, outside the controller's lock.
	OnChange func(View)
}

const (
	DefaultCurrency       = "bdt"
	DefaultTimeout        = 30 * time.Second
	DefaultAutoCloseDelay = 3 * time.Second
)

func (o *Options) setDefaults() {
	if o.Currency == "" {
		o.Currency = DefaultCurrency
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.AutoCloseDelay <= 0 {
		o.AutoCloseDelay = DefaultAutoCloseDelay
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// View is a snapshot of the attempt for rendering.
type View struct {
	Step          Step
	Fee           models.Fee
	Quote         pricing.Quote
	Card          CardDetails
	SubmitEnabled bool
	Message       string
	Err           error
	TransactionID string
}

// Controller owns one payment attempt for one fee.
type Controller struct {
	gateway  Gateway
	notifier Notifier
	opts     Options
	fee      models.Fee
	quote    pricing.Quote

	mu        sync.Mutex
	step      Step
	card      CardDetails
	message   string
	err       error
	txID      string
	autoClose *time.Timer
	done      chan struct{}
}

// Open starts an attempt for fee on behalf of s. Only authenticated students may
// pay; any other actor gets ErrIneligiblePayer and no gateway call is ever made.
func Open(s session.Session, fee models.Fee, gw Gateway, notifier Notifier, opts Options) (*Controller, error) {
	if err := policy.Authorize(s, policy.ActionPayFee); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIneligiblePayer, err)
	}
	if !fee.Payable() {
		return nil, ErrFeeNotPayable
	}
	if err := pricing.ValidateAmount(fee.Amount); err != nil {
		return nil, err
	}
	opts.setDefaults()

	return &Controller{
		gateway:  gw,
		notifier: notifier,
		opts:     opts,
		fee:      fee,
		quote:    pricing.QuoteFor(fee.Amount),
		step:     StepDetails,
		done:     make(chan struct{}),
	}, nil
}

// View returns the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	return View{
		Step:          c.step,
		Fee:           c.fee,
		Quote:         c.quote,
		Card:          c.card,
		SubmitEnabled: c.step == StepDetails && c.card.Complete(),
		Message:       c.message,
		Err:           c.err,
		TransactionID: c.txID,
	}
}

// Done is closed when the attempt is closed, either by Close or by the
// auto-close that follows a successful payment.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// SetDetails replaces the card fields. Only allowed while entering details.
func (c *Controller) SetDetails(card CardDetails) error {
	c.mu.Lock()
	if err := c.checkStepLocked(StepDetails); err != nil {
		c.mu.Unlock()
		return err
	}
	c.card = card
	v := c.viewLocked()
	c.mu.Unlock()

	c.emit(v)
	return nil
}

// Submit runs the attempt: create an intent, wait out the simulated gateway
// interaction, then confirm. It returns once the attempt has reached success or
// error. Gateway failures are reported through View, not the returned error;
// the returned error only signals that submission was refused.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if err := c.checkStepLocked(StepDetails); err != nil {
		c.mu.Unlock()
		return err
	}
	if !c.card.Complete() {
		c.mu.Unlock()
		return ErrIncompleteDetails
	}

	c.step = StepProcessing
	c.message = ""
	c.err = nil
	card := c.card
	v := c.viewLocked()
	c.mu.Unlock()

	// Close never cancels the attempt; only ctx and the timeout end it.
	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	c.emit(v)

	start := time.Now()
	result, err := c.attempt(attemptCtx, card)
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = ErrGatewayTimeout
	}
	c.finish(ctx, result, err, time.Since(start))
	return nil
}

func (c *Controller) attempt(ctx context.Context, card CardDetails) (*models.ConfirmResult, error) {
	intent, err := c.gateway.CreatePaymentIntent(ctx, models.CreateIntentRequest{
		StudentFeeID: c.fee.ID,
		Amount:       c.fee.Amount,
		Currency:     c.opts.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	if c.opts.SimulatedDelay > 0 {
		timer := time.NewTimer(c.opts.SimulatedDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	result, err := c.gateway.ConfirmPayment(ctx, models.ConfirmRequest{
		PaymentIntentID: intent.PaymentIntentID,
		PaymentMethodID: card.paymentMethodID(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}
	if result == nil {
		return nil, ErrNoConfirmation
	}
	return result, nil
}

func (c *Controller) finish(ctx context.Context, result *models.ConfirmResult, err error, elapsed time.Duration) {
	c.mu.Lock()
	closed := c.step == StepClosed
	logger := c.opts.Logger.With("fee_id", c.fee.ID, "closed", closed)

	switch {
	case errors.Is(err, context.Canceled):
		c.opts.Metrics.ObservePayment(metrics.OutcomeCancelled, elapsed)
		logger.Info("Payment cancelled", "error", err)
		if !closed {
			c.step = StepError
			c.err = err
			c.message = "Payment cancelled"
		}
	case err != nil:
		outcome := metrics.OutcomeError
		if errors.Is(err, ErrGatewayTimeout) {
			outcome = metrics.OutcomeTimeout
		}
		c.opts.Metrics.ObservePayment(outcome, elapsed)
		logger.Warn("Payment failed", "error", err)
		if !closed {
			c.step = StepError
			c.err = err
			c.message = errorMessage(err)
		}
	case !result.Success:
		c.opts.Metrics.ObservePayment(metrics.OutcomeDeclined, elapsed)
		logger.Info("Payment declined", "message", result.Message)
		if !closed {
			c.step = StepError
			c.message = result.Message
			if c.message == "" {
				c.message = "Payment failed"
			}
		}
	default:
		c.opts.Metrics.ObservePayment(metrics.OutcomeSuccess, elapsed)
		logger.Info("Payment succeeded", "transaction_id", result.TransactionID)
		if !closed {
			c.step = StepSuccess
			c.txID = result.TransactionID
			c.autoClose = time.AfterFunc(c.opts.AutoCloseDelay, func() { c.Close() })
		}
	}
	v := c.viewLocked()
	c.mu.Unlock()

	if !closed {
		c.emit(v)
	}
	// The backend has already recorded a confirmed payment, so the fee view must
	// reconcile even if the attempt was closed meanwhile.
	if err == nil && result.Success && c.notifier != nil {
		c.notifier.PaymentCompleted(context.WithoutCancel(ctx), c.fee.ID, models.MethodStripe, result.TransactionID)
	}
}

// Retry returns a failed attempt to details. Entered card fields are kept.
func (c *Controller) Retry() error {
	c.mu.Lock()
	if c.step == StepClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.step != StepError {
		c.mu.Unlock()
		return ErrNotRetryable
	}
	c.step = StepDetails
	c.message = ""
	c.err = nil
	v := c.viewLocked()
	c.mu.Unlock()

	c.emit(v)
	return nil
}

// Close discards the attempt from any step and cancels a pending auto-close.
// An in-flight gateway call keeps running; if it confirms, the notifier is
// still told. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.step == StepClosed {
		c.mu.Unlock()
		return
	}
	if c.autoClose != nil {
		c.autoClose.Stop()
		c.autoClose = nil
	}
	c.step = StepClosed
	c.card = CardDetails{}
	c.message = ""
	c.err = nil
	c.txID = ""
	close(c.done)
	v := c.viewLocked()
	c.mu.Unlock()

	c.emit(v)
}

func (c *Controller) checkStepLocked(want Step) error {
	switch c.step {
	case want:
		return nil
	case StepClosed:
		return ErrClosed
	case StepProcessing:
		return ErrAttemptInFlight
	default:
		return ErrWrongStep
	}
}

func (c *Controller) emit(v View) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(v)
	}
}

func errorMessage(err error) string {
	if errors.Is(err, ErrGatewayTimeout) {
		return "The payment gateway did not respond in time. Please try again."
	}
	if inner := errors.Unwrap(err); inner != nil {
		return inner.Error()
	}
	return err.Error()
}
