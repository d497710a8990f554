package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardsim/paper-engine/internal/asset"
)

func startPrices() map[asset.Symbol]decimal.Decimal {
	return map[asset.Symbol]decimal.Decimal{
		asset.BTC: decimal.NewFromInt(43250),
		asset.ETH: decimal.NewFromInt(2640),
	}
}

// staticSource returns fixed prices, or an error when failing is set.
type staticSource struct {
	prices  map[asset.Symbol]decimal.Decimal
	failing bool
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Prices(context.Context) (map[asset.Symbol]decimal.Decimal, error) {
	if s.failing {
		return nil, errors.New("source down")
	}
	return s.prices, nil
}

func TestCurrentPrice_Seeded(t *testing.T) {
	f := New(&staticSource{}, startPrices(), nil)

	price, err := f.CurrentPrice(asset.BTC)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(43250)))

	_, err = f.CurrentPrice(asset.Symbol("DOGE"))
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestRefresh_UpdatesFromSource(t *testing.T) {
	src := &staticSource{prices: map[asset.Symbol]decimal.Decimal{
		asset.BTC: decimal.NewFromInt(44000),
		asset.ETH: decimal.NewFromInt(2700),
	}}
	f := New(src, startPrices(), nil)

	f.Refresh(context.Background())

	price, err := f.CurrentPrice(asset.BTC)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(44000)))

	require.Len(t, f.History(), 1)
}

func TestRefresh_FallbackKeepsAnswering(t *testing.T) {
	src := &staticSource{failing: true}
	floors := map[asset.Symbol]decimal.Decimal{
		asset.BTC: decimal.NewFromInt(30000),
		asset.ETH: decimal.NewFromInt(1500),
	}
	f := New(src, startPrices(), floors)

	for i := 0; i < 50; i++ {
		f.Refresh(context.Background())
	}

	for _, sym := range asset.Symbols() {
		price, err := f.CurrentPrice(sym)
		require.NoError(t, err, "feed must keep answering while the source is down")
		assert.True(t, price.GreaterThanOrEqual(floors[sym]),
			"%s drifted below its floor: %s", sym, price)
	}
}

func TestHistory_Bounded(t *testing.T) {
	src := &staticSource{failing: true}
	f := New(src, startPrices(), nil)

	for i := 0; i < maxHistory+20; i++ {
		f.Refresh(context.Background())
	}

	h := f.History()
	assert.Len(t, h, maxHistory)
	for i := 1; i < len(h); i++ {
		assert.True(t, !h[i].Time.Before(h[i-1].Time), "history must be oldest first")
	}
}

func TestSeedHistory(t *testing.T) {
	f := New(&staticSource{}, startPrices(), nil)

	f.SeedHistory(24, time.Hour)

	h := f.History()
	require.Len(t, h, 24)
	assert.True(t, h[0].Time.Before(h[len(h)-1].Time))
	for _, point := range h {
		assert.True(t, point.Prices[asset.BTC].IsPositive())
	}
}
