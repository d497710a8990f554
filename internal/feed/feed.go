// Package feed supplies current prices for the supported assets and a
// bounded rolling price history. Prices come from a pluggable Source; when
// the source fails the feed degrades to a perturbed last-known value rather
// than blocking callers. Prices are external, untrusted input — the trade
// engine snapshots them, it never lets callers supply their own.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shardsim/paper-engine/internal/asset"
	"github.com/shardsim/paper-engine/internal/model"
)

// ErrNoPrice is returned when no price is known for an asset.
var ErrNoPrice = errors.New("feed: no price available for asset")

// maxHistory bounds the rolling history; oldest entries are dropped.
const maxHistory = 100

// fallbackJitter is the relative half-width of the random walk applied to
// the last-known price when the source is unavailable.
const fallbackJitter = 0.02

// Source produces a quote for every supported asset.
type Source interface {
	Name() string
	Prices(ctx context.Context) (map[asset.Symbol]decimal.Decimal, error)
}

// Feed polls a Source and maintains last-known prices plus the bounded
// rolling history.
type Feed struct {
	source Source
	floors map[asset.Symbol]decimal.Decimal

	mu      sync.RWMutex
	last    map[asset.Symbol]decimal.Decimal
	history []model.PricePoint
}

// New creates a feed seeded with starting prices. Floors clamp how far the
// fallback random walk can drift down (zero floor disables clamping).
func New(source Source, start, floors map[asset.Symbol]decimal.Decimal) *Feed {
	last := make(map[asset.Symbol]decimal.Decimal, len(start))
	for sym, price := range start {
		last[sym] = price
	}
	return &Feed{
		source: source,
		floors: floors,
		last:   last,
	}
}

// CurrentPrice returns the latest known price for an asset.
func (f *Feed) CurrentPrice(sym asset.Symbol) (decimal.Decimal, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	price, ok := f.last[sym]
	if !ok || !price.IsPositive() {
		return decimal.Decimal{}, ErrNoPrice
	}
	return price, nil
}

// Prices returns a snapshot of the latest prices for all assets.
func (f *Feed) Prices() map[asset.Symbol]decimal.Decimal {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[asset.Symbol]decimal.Decimal, len(f.last))
	for sym, price := range f.last {
		out[sym] = price
	}
	return out
}

// History returns the rolling price history, oldest first.
func (f *Feed) History() []model.PricePoint {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]model.PricePoint, len(f.history))
	copy(out, f.history)
	return out
}

// Run polls the source at the given interval until the context is done.
func (f *Feed) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Refresh(ctx)
		}
	}
}

// Refresh fetches prices from the source and records a history sample.
// On source failure the last-known prices are perturbed instead, so the
// feed keeps answering.
func (f *Feed) Refresh(ctx context.Context) {
	prices, err := f.source.Prices(ctx)
	if err != nil {
		slog.Warn("price source unavailable, using perturbed fallback",
			"source", f.source.Name(), "err", err)
		f.mu.Lock()
		prices = f.perturbLocked()
		f.recordLocked(prices, time.Now().UTC())
		f.mu.Unlock()
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for sym, price := range prices {
		if price.IsPositive() {
			f.last[sym] = price
		}
	}
	f.recordLocked(f.last, time.Now().UTC())
}

// SeedHistory backfills n perturbed samples spaced step apart, so charts
// have data before the first real poll completes.
func (f *Feed) SeedHistory(n int, step time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now().UTC()
	for i := n; i >= 1; i-- {
		f.recordLocked(f.perturbLocked(), now.Add(-time.Duration(i)*step))
	}
}

// perturbLocked applies a small random walk to the last-known prices,
// clamped at the configured floors. Must be called with f.mu held.
func (f *Feed) perturbLocked() map[asset.Symbol]decimal.Decimal {
	for sym, price := range f.last {
		jitter := decimal.NewFromFloat((rand.Float64() - 0.5) * 2 * fallbackJitter)
		next := price.Add(price.Mul(jitter))
		if floor, ok := f.floors[sym]; ok && floor.IsPositive() && next.LessThan(floor) {
			next = floor
		}
		f.last[sym] = next
	}
	return f.last
}

// recordLocked appends a history sample, dropping the oldest entry past
// the window. Must be called with f.mu held.
func (f *Feed) recordLocked(prices map[asset.Symbol]decimal.Decimal, at time.Time) {
	snapshot := make(map[asset.Symbol]decimal.Decimal, len(prices))
	for sym, price := range prices {
		snapshot[sym] = price
	}
	f.history = append(f.history, model.PricePoint{Time: at, Prices: snapshot})
	if len(f.history) > maxHistory {
		f.history = f.history[len(f.history)-maxHistory:]
	}
}
