package pricing

import (
	"errors"
	"math"
	"testing"
)

func TestProcessingFee(t *testing.T) {
	tests := []struct {
		name string
		base float64
		want float64
	}{
		{name: "zero base has no fee", base: 0, want: 0},
		{name: "round thousand", base: 1000, want: 54},
		{name: "small amount", base: 1, want: 25.03},
		{name: "exact cents", base: 50, want: 26.45},
		{name: "rounds half away from zero", base: 5, want: 25.15},
		{name: "fractional base", base: 1234.56, want: 60.8},
		{name: "large tuition fee", base: 45000, want: 1330},
		{name: "negative is rejected as zero", base: -10, want: 0},
		{name: "NaN is rejected as zero", base: math.NaN(), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProcessingFee(tt.base)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ProcessingFee(%v) = %v, want %v", tt.base, got, tt.want)
			}
		})
	}
}

func TestTotalPayable(t *testing.T) {
	if got := TotalPayable(1000); got != 1054 {
		t.Errorf("TotalPayable(1000) = %v, want 1054", got)
	}
	if got := TotalPayable(0); got != 0 {
		t.Errorf("TotalPayable(0) = %v, want 0", got)
	}

	// total is always base + fee, and the fee is never negative
	for _, base := range []float64{0, 0.01, 0.5, 1, 9.99, 17.3, 250, 999.99, 1000, 12345.67, 1e6} {
		fee := ProcessingFee(base)
		if fee < 0 {
			t.Errorf("ProcessingFee(%v) = %v, want >= 0", base, fee)
		}
		if got := TotalPayable(base); got != base+fee {
			t.Errorf("TotalPayable(%v) = %v, want %v", base, got, base+fee)
		}
	}
}

func TestProcessingFeeDeterministic(t *testing.T) {
	first := ProcessingFee(777.77)
	for i := 0; i < 100; i++ {
		if got := ProcessingFee(777.77); got != first {
			t.Fatalf("ProcessingFee not deterministic: %v then %v", first, got)
		}
	}
}

func TestQuoteFor(t *testing.T) {
	q := QuoteFor(1000)
	if q.Base != 1000 || q.ProcessingFee != 54 || q.Total != 1054 {
		t.Errorf("QuoteFor(1000) = %+v, want {1000 54 1054}", q)
	}
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  float64
		wantErr bool
	}{
		{name: "zero", amount: 0},
		{name: "positive", amount: 12.5},
		{name: "negative", amount: -0.01, wantErr: true},
		{name: "NaN", amount: math.NaN(), wantErr: true},
		{name: "infinity", amount: math.Inf(1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(tt.amount)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAmount(%v) error = %v, wantErr %v", tt.amount, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("ValidateAmount(%v) error = %v, want ErrInvalidAmount", tt.amount, err)
			}
		})
	}
}

func TestInstallmentAmount(t *testing.T) {
	tests := []struct {
		name  string
		total float64
		count int
		want  float64
	}{
		{name: "even split", total: 30000, count: 3, want: 10000},
		{name: "uneven split rounds", total: 100, count: 3, want: 33.33},
		{name: "half cent rounds up", total: 0.05, count: 2, want: 0.03},
		{name: "single payment is not a plan", total: 100, count: 1, want: 0},
		{name: "negative total", total: -100, count: 2, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InstallmentAmount(tt.total, tt.count); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("InstallmentAmount(%v, %d) = %v, want %v", tt.total, tt.count, got, tt.want)
			}
		})
	}
}
