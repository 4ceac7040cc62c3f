// Package client is a typed client for the financials REST backend.
//
// Every request carries the session's bearer token when one is present; a
// missing token is not an error here, the backend decides. Non-2xx responses
// become *HTTPError, including authorization failures.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmynk/deptportal/internal/models"
	"github.com/mmynk/deptportal/internal/session"
)

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 15 * time.Second

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not an *HTTPError.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// Client talks to the financials API rooted at baseURL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    session.Session
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for baseURL acting on behalf of s. A nil session is anonymous.
func New(baseURL string, s session.Session, opts ...Option) *Client {
	if s == nil {
		s = session.Anonymous()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		session:    s,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithSession returns a copy of the client acting on behalf of s.
func (c *Client) WithSession(s session.Session) *Client {
	clone := *c
	if s == nil {
		s = session.Anonymous()
	}
	clone.session = s
	return &clone
}

// Session returns the session the client acts for.
func (c *Client) Session() session.Session {
	return c.session
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetMyFees returns the fees assigned to the session's student.
func (c *Client) GetMyFees(ctx context.Context) ([]models.Fee, error) {
	var fees []models.Fee
	if err := c.do(ctx, http.MethodGet, "/fees/my-fees", nil, &fees); err != nil {
		return nil, err
	}
	return fees, nil
}

// CreatePaymentIntent reserves a charge for a student fee.
func (c *Client) CreatePaymentIntent(ctx context.Context, req models.CreateIntentRequest) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := c.do(ctx, http.MethodPost, "/payments/create-intent", req, &intent); err != nil {
		return nil, err
	}
	if intent.PaymentIntentID == "" {
		return nil, errors.New("payment intent response missing payment_intent_id")
	}
	return &intent, nil
}

// ConfirmPayment confirms an intent. A declined payment is reported through
// ConfirmResult.Success, not as an error.
func (c *Client) ConfirmPayment(ctx context.Context, req models.ConfirmRequest) (*models.ConfirmResult, error) {
	var result models.ConfirmResult
	if err := c.do(ctx, http.MethodPost, "/payments/confirm", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetPaymentHistory returns the session student's completed payments.
func (c *Client) GetPaymentHistory(ctx context.Context) ([]models.PaymentRecord, error) {
	var history []models.PaymentRecord
	if err := c.do(ctx, http.MethodGet, "/payments/history", nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// GetAllFees returns every fee definition (admin only).
func (c *Client) GetAllFees(ctx context.Context) ([]models.AdminFee, error) {
	var fees []models.AdminFee
	if err := c.do(ctx, http.MethodGet, "/admin/fees", nil, &fees); err != nil {
		return nil, err
	}
	return fees, nil
}

// GetPaymentStatistics returns the department-wide billing summary (admin only).
func (c *Client) GetPaymentStatistics(ctx context.Context) (*models.PaymentStatistics, error) {
	var stats models.PaymentStatistics
	if err := c.do(ctx, http.MethodGet, "/admin/payment-statistics", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// CreateFee creates a fee definition (admin only).
func (c *Client) CreateFee(ctx context.Context, req models.FeeCreate) (*models.AdminFee, error) {
	var fee models.AdminFee
	if err := c.do(ctx, http.MethodPost, "/admin/fees", req, &fee); err != nil {
		return nil, err
	}
	return &fee, nil
}

// UpdateFee applies a partial update to a fee definition (admin only).
func (c *Client) UpdateFee(ctx context.Context, feeID string, req models.FeeUpdate) (*models.AdminFee, error) {
	var fee models.AdminFee
	if err := c.do(ctx, http.MethodPut, "/admin/fees/"+url.PathEscape(feeID), req, &fee); err != nil {
		return nil, err
	}
	return &fee, nil
}

// DeleteFee removes a fee definition (admin only).
func (c *Client) DeleteFee(ctx context.Context, feeID string) error {
	return c.do(ctx, http.MethodDelete, "/admin/fees/"+url.PathEscape(feeID), nil, nil)
}

// AssignFee assigns a fee definition to a student. A nil amountDue assigns the full amount.
func (c *Client) AssignFee(ctx context.Context, feeID, studentID string, amountDue *float64) (*models.StudentFee, error) {
	path := fmt.Sprintf("/admin/assign-fee/%s/student/%s", url.PathEscape(feeID), url.PathEscape(studentID))
	var assigned models.StudentFee
	if err := c.do(ctx, http.MethodPost, path, models.AssignFeeRequest{AmountDue: amountDue}, &assigned); err != nil {
		return nil, err
	}
	return &assigned, nil
}

// do sends one JSON request and decodes the JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// decodeError reads the backend's error body. FastAPI-style "detail" and
// {"error": ...} bodies are both understood; anything else falls back to the status.
func decodeError(resp *http.Response) error {
	httpErr := &HTTPError{StatusCode: resp.StatusCode}

	var body struct {
		Detail any    `json:"detail"`
		Error  string `json:"error"`
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || json.Unmarshal(data, &body) != nil {
		return httpErr
	}

	switch d := body.Detail.(type) {
	case string:
		httpErr.Detail = d
	case nil:
		httpErr.Detail = body.Error
	default:
		// validation errors arrive as a list of objects
		if encoded, err := json.Marshal(d); err == nil {
			httpErr.Detail = string(encoded)
		}
	}
	return httpErr
}
