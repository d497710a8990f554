// Package risk enforces exposure limits on simulated trading: a cap on the
// net holdings of any single asset and a cap on total invested capital.
// Limits keep demo accounts from concentrating absurd positions; both are
// configuration, not hard-coded.
package risk

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrPerAssetLimitExceeded is returned when a buy would push a single
	// asset's holdings beyond the per-asset maximum.
	ErrPerAssetLimitExceeded = errors.New("risk: per-asset holdings limit exceeded")

	// ErrInvestedLimitExceeded is returned when a buy would push total
	// invested capital beyond the maximum.
	ErrInvestedLimitExceeded = errors.New("risk: total invested limit exceeded")
)

// Limiter enforces per-asset and aggregate exposure limits. A zero limit
// disables that check.
type Limiter struct {
	// MaxPerAsset is the maximum net holdings in any single asset.
	MaxPerAsset decimal.Decimal

	// MaxInvested is the maximum cumulative BUY cost across all assets.
	MaxInvested decimal.Decimal
}

// NewLimiter creates a limiter with the given per-asset and invested limits.
func NewLimiter(maxPerAsset, maxInvested decimal.Decimal) *Limiter {
	return &Limiter{
		MaxPerAsset: maxPerAsset,
		MaxInvested: maxInvested,
	}
}

// CheckBuy validates whether a buy respects exposure limits.
//
// Parameters:
//   - holding: current net holdings of the asset being bought
//   - amount: quantity being bought
//   - invested: current total invested capital
//   - cost: total cost of this buy
//
// Sells only reduce exposure and are never limited.
func (l *Limiter) CheckBuy(holding, amount, invested, cost decimal.Decimal) error {
	if l.MaxPerAsset.IsPositive() && holding.Add(amount).GreaterThan(l.MaxPerAsset) {
		return ErrPerAssetLimitExceeded
	}
	if l.MaxInvested.IsPositive() && invested.Add(cost).GreaterThan(l.MaxInvested) {
		return ErrInvestedLimitExceeded
	}
	return nil
}
