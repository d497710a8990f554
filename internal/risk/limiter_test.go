package risk

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestCheckBuy_WithinLimits(t *testing.T) {
	l := NewLimiter(d(10), d(1000))

	if err := l.CheckBuy(d(2), d(3), d(100), d(200)); err != nil {
		t.Fatalf("expected buy within limits to pass, got %v", err)
	}
}

func TestCheckBuy_PerAssetLimit(t *testing.T) {
	l := NewLimiter(d(10), d(0))

	// Exactly at the limit is allowed.
	if err := l.CheckBuy(d(7), d(3), d(0), d(0)); err != nil {
		t.Fatalf("buy reaching the limit should pass, got %v", err)
	}

	err := l.CheckBuy(d(7), d(3.1), d(0), d(0))
	if !errors.Is(err, ErrPerAssetLimitExceeded) {
		t.Fatalf("expected ErrPerAssetLimitExceeded, got %v", err)
	}
}

func TestCheckBuy_InvestedLimit(t *testing.T) {
	l := NewLimiter(d(0), d(1000))

	if err := l.CheckBuy(d(0), d(1), d(900), d(100)); err != nil {
		t.Fatalf("buy reaching the limit should pass, got %v", err)
	}

	err := l.CheckBuy(d(0), d(1), d(900), d(101))
	if !errors.Is(err, ErrInvestedLimitExceeded) {
		t.Fatalf("expected ErrInvestedLimitExceeded, got %v", err)
	}
}

func TestCheckBuy_ZeroLimitsDisabled(t *testing.T) {
	l := NewLimiter(decimal.Zero, decimal.Zero)

	if err := l.CheckBuy(d(1e9), d(1e9), d(1e9), d(1e9)); err != nil {
		t.Fatalf("zero limits must disable checks, got %v", err)
	}
}
