package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCreateIntent(t *testing.T) {
	sim := NewSimulator(nil, "BDT")
	ctx := context.Background()

	intent, err := sim.CreateIntent(ctx, 1054.55, "bdt")
	if err != nil {
		t.Fatalf("CreateIntent failed: %v", err)
	}
	if !strings.HasPrefix(intent.ID, "pi_") || !strings.HasPrefix(intent.ClientSecret, intent.ID+"_secret_") {
		t.Errorf("intent = %+v, want pi_ id and matching secret", intent)
	}
	if intent.AmountMinor != 105455 || intent.Status != StatusRequiresConfirmation {
		t.Errorf("intent = %+v, want 105455 minor units awaiting confirmation", intent)
	}

	if _, err := sim.CreateIntent(ctx, 0, "bdt"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount error = %v, want ErrInvalidAmount", err)
	}
	if _, err := sim.CreateIntent(ctx, 10, "usd"); !errors.Is(err, ErrUnsupportedCurrency) {
		t.Errorf("usd error = %v, want ErrUnsupportedCurrency", err)
	}
}

func TestConfirm(t *testing.T) {
	sim := NewSimulator(nil, "bdt")
	ctx := context.Background()

	tests := []struct {
		name      string
		method    string
		wantOK    bool
		wantErr   error
		wantTxnID string
	}{
		{name: "visa succeeds", method: "pm_card_visa", wantOK: true, wantTxnID: "pi_1"},
		{name: "declined card", method: DeclinedPaymentMethod},
		{name: "malformed method", method: "card_123", wantErr: ErrInvalidPaymentMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			charge, err := sim.Confirm(ctx, "pi_1", tt.method)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Confirm error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Confirm failed: %v", err)
			}
			if charge.Succeeded() != tt.wantOK || charge.TransactionID != tt.wantTxnID {
				t.Errorf("charge = %+v, want succeeded=%v txn=%q", charge, tt.wantOK, tt.wantTxnID)
			}
		})
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSimulator(nil, "bdt").CreateIntent(ctx, 10, "bdt"); !errors.Is(err, context.Canceled) {
		t.Errorf("CreateIntent error = %v, want context.Canceled", err)
	}
}
