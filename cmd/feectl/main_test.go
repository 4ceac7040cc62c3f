package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmynk/deptportal/internal/auth"
	"github.com/mmynk/deptportal/internal/config"
	"github.com/mmynk/deptportal/internal/gateway"
	"github.com/mmynk/deptportal/internal/models"
	"github.com/mmynk/deptportal/internal/policy"
	"github.com/mmynk/deptportal/internal/server"
	"github.com/mmynk/deptportal/internal/storage/sqlite"
	"github.com/mmynk/deptportal/pkg/logging"
)

func newBackend(t *testing.T) (*config.Config, *sqlite.SQLiteStore) {
	t.Helper()
	dir := t.TempDir()
	store, err := sqlite.New(filepath.Join(dir, "fees.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := logging.Discard()
	authn := auth.NewPasswordAuthenticator(store)
	if err := server.Seed(context.Background(), store, authn, models.DateOf(time.Now()), logger); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	srv := httptest.NewServer(server.New(store, authn,
		auth.NewJWTManager("test-secret", time.Hour),
		gateway.NewSimulator(logger, "bdt"),
		server.WithLogger(logger),
	).Handler())
	t.Cleanup(srv.Close)

	return &config.Config{
		APIBaseURL:     srv.URL + server.BasePath,
		Currency:       "bdt",
		GatewayTimeout: 5 * time.Second,
		AutoCloseDelay: 10 * time.Millisecond,
		SessionFile:    filepath.Join(dir, "session"),
	}, store
}

// runCmd runs one feectl invocation with the given stdin.
func runCmd(t *testing.T, cfg *config.Config, input string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := newApp(cfg, strings.NewReader(input), &out, logging.Discard())
	err := a.run(context.Background(), args)
	return out.String(), err
}

func TestStudentSession(t *testing.T) {
	cfg, store := newBackend(t)

	if _, err := runCmd(t, cfg, "", "fees"); err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Fatalf("fees before login error = %v, want not logged in", err)
	}

	out, err := runCmd(t, cfg, "student-pass-123\n", "login", "-email", "rahim@cse.dept.edu")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !strings.Contains(out, "Logged in as Rahim Uddin (student)") {
		t.Errorf("login output = %q", out)
	}

	out, err = runCmd(t, cfg, "", "fees")
	if err != nil {
		t.Fatalf("fees failed: %v", err)
	}
	for _, want := range []string{"Fees for Rahim Uddin", "TUITION", "Semester Tuition", "3 x BDT 15000.00", "overdue", "Overdue: BDT 15000.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("fees output missing %q:\n%s", want, out)
		}
	}

	rahim, err := store.GetUserByEmail(context.Background(), "rahim@cse.dept.edu")
	if err != nil || rahim == nil {
		t.Fatalf("GetUserByEmail = %v, %v", rahim, err)
	}
	fees, err := store.ListStudentFees(context.Background(), rahim.ID, models.DateOf(time.Now()))
	if err != nil {
		t.Fatalf("ListStudentFees failed: %v", err)
	}
	var libraryID string
	for _, f := range fees {
		if f.Title == "Library Card" {
			libraryID = f.ID
		}
	}

	input := strings.Join([]string{
		"Rahim Uddin", "4000000000000002", "12/27", "123", "y",
		"Rahim Uddin", "4242424242424242", "12/27", "123",
	}, "\n") + "\n"
	out, err = runCmd(t, cfg, input, "pay", libraryID)
	if err != nil {
		t.Fatalf("pay failed: %v\n%s", err, out)
	}
	for _, want := range []string{
		"Processing fee:  BDT 39.50",
		"Total:           BDT 539.50",
		"Payment failed: Payment not successful",
		"Payment successful. Transaction: pi_",
		"Library Card is now paid.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("pay output missing %q:\n%s", want, out)
		}
	}

	out, err = runCmd(t, cfg, "", "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "Library Card") || !strings.Contains(out, "Credit Card (Stripe)") {
		t.Errorf("history output = %q", out)
	}

	if _, err := runCmd(t, cfg, "", "stats"); err == nil {
		t.Error("stats as a student succeeded, want an authorization error")
	}

	if _, err := runCmd(t, cfg, "", "logout"); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := runCmd(t, cfg, "", "history"); err == nil {
		t.Error("history after logout succeeded")
	}
}

func TestAdminStats(t *testing.T) {
	cfg, _ := newBackend(t)
	if _, err := runCmd(t, cfg, "admin-pass-123\n", "login", "-email", "admin@cse.dept.edu"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	out, err := runCmd(t, cfg, "", "stats")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	for _, want := range []string{"Total due: BDT 131000.00", "Paid: 0  Pending: 6  Overdue: 2", "No payments yet."} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestUsage(t *testing.T) {
	cfg, _ := newBackend(t)
	for _, args := range [][]string{nil, {"bogus"}, {"pay"}} {
		if _, err := runCmd(t, cfg, "", args...); !errors.Is(err, errUsage) {
			t.Errorf("run(%v) error = %v, want errUsage", args, err)
		}
	}
}

func TestAdminManagesFees(t *testing.T) {
	cfg, store := newBackend(t)
	ctx := context.Background()
	if _, err := runCmd(t, cfg, "admin-pass-123\n", "login", "-email", "admin@cse.dept.edu"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	out, err := runCmd(t, cfg, "", "fee-add", "-title", "Lab Fee", "-type", "other", "-amount", "900", "-deadline", "2030-05-01")
	if err != nil {
		t.Fatalf("fee-add failed: %v", err)
	}
	if !strings.Contains(out, "Lab Fee, BDT 900.00, due 2030-05-01") {
		t.Errorf("fee-add output = %q", out)
	}
	feeID := strings.Fields(strings.TrimPrefix(out, "Created fee "))[0]

	nadia, err := store.GetUserByEmail(ctx, "nadia@cse.dept.edu")
	if err != nil || nadia == nil {
		t.Fatalf("GetUserByEmail = %v, %v", nadia, err)
	}
	out, err = runCmd(t, cfg, "", "assign", "-amount", "450", feeID, nadia.ID)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if !strings.Contains(out, "BDT 450.00 due") {
		t.Errorf("assign output = %q", out)
	}

	fees, err := store.ListStudentFees(ctx, nadia.ID, models.DateOf(time.Now()))
	if err != nil {
		t.Fatalf("ListStudentFees failed: %v", err)
	}
	if len(fees) != 5 {
		t.Errorf("nadia fees = %d, want 5 after assignment", len(fees))
	}

	if _, err := runCmd(t, cfg, "", "fee-rm", feeID); err != nil {
		t.Fatalf("fee-rm failed: %v", err)
	}
	if fees, _ := store.ListStudentFees(ctx, nadia.ID, models.DateOf(time.Now())); len(fees) != 4 {
		t.Errorf("nadia fees = %d, want 4 after delete", len(fees))
	}

	if _, err := runCmd(t, cfg, "", "fee-add", "-title", "No amount", "-deadline", "2030-05-01"); !errors.Is(err, errUsage) {
		t.Errorf("fee-add without amount error = %v, want errUsage", err)
	}
}

func TestStudentCannotManageFees(t *testing.T) {
	cfg, _ := newBackend(t)
	if _, err := runCmd(t, cfg, "student-pass-123\n", "login", "-email", "rahim@cse.dept.edu"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := runCmd(t, cfg, "", "fee-rm", "anything"); !errors.Is(err, policy.ErrUnauthorized) {
		t.Errorf("fee-rm as student error = %v, want ErrUnauthorized", err)
	}
}
