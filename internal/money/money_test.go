package money

import (
	"errors"
	"testing"
)

func TestAddSub(t *testing.T) {
	a := New(1050, "USD")
	b := New(250, "USD")

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if sum.Amount != 1300 || sum.Currency != "USD" {
		t.Errorf("Add = %v, want 13.00 USD", sum)
	}

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("Sub failed: %v", err)
	}
	if diff.Amount != 800 {
		t.Errorf("Sub = %v, want 8.00 USD", diff)
	}
}

func TestCurrencyMismatch(t *testing.T) {
	usd := New(100, "USD")
	eur := New(100, "EUR")

	if _, err := usd.Add(eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("Add error = %v, want ErrCurrencyMismatch", err)
	}
	if _, err := usd.Sub(eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("Sub error = %v, want ErrCurrencyMismatch", err)
	}
	if _, err := usd.Cmp(eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("Cmp error = %v, want ErrCurrencyMismatch", err)
	}
}

func TestCmp(t *testing.T) {
	tests := []struct {
		name string
		a, b int64
		want int
	}{
		{"less", 100, 200, -1},
		{"equal", 150, 150, 0},
		{"greater", 300, 200, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.a, "USD").Cmp(New(tt.b, "USD"))
			if err != nil {
				t.Fatalf("Cmp failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Cmp(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestNegMulInt(t *testing.T) {
	m := New(250, "USD")
	if got := m.Neg(); got.Amount != -250 {
		t.Errorf("Neg = %d, want -250", got.Amount)
	}
	if got := m.MulInt(3); got.Amount != 750 {
		t.Errorf("MulInt(3) = %d, want 750", got.Amount)
	}
	if got := m.Neg().Neg(); got != m {
		t.Errorf("double Neg = %v, want %v", got, m)
	}
}

func TestFromMajor(t *testing.T) {
	if got := FromMajor(33, "USD"); got != New(3300, "USD") {
		t.Errorf("FromMajor(33) = %v, want 33.00 USD", got)
	}
}

func TestPredicates(t *testing.T) {
	if !Zero("USD").IsZero() {
		t.Error("Zero should be zero")
	}
	if Zero("USD").IsNegative() {
		t.Error("Zero should not be negative")
	}
	if !New(-1, "USD").IsNegative() {
		t.Error("-1 should be negative")
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{3300, "33.00 USD"},
		{5, "0.05 USD"},
		{-1250, "-12.50 USD"},
		{0, "0.00 USD"},
		{101, "1.01 USD"},
	}
	for _, tt := range tests {
		if got := New(tt.amount, "USD").String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}
