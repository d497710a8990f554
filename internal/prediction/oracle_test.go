package prediction

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardsim/paper-engine/internal/asset"
	"github.com/shardsim/paper-engine/internal/feed"
	"github.com/shardsim/paper-engine/internal/model"
)

func priceFeed(btc int64) *feed.Feed {
	return feed.New(nil, map[asset.Symbol]decimal.Decimal{
		asset.BTC: decimal.NewFromInt(btc),
	}, nil)
}

func TestPriceOracle_Judge(t *testing.T) {
	cases := []struct {
		name      string
		direction asset.Direction
		entry     int64
		current   int64
		want      bool
	}{
		{"up wins when price rose", asset.Up, 43000, 44000, true},
		{"up loses when price fell", asset.Up, 43000, 42000, false},
		{"down wins when price fell", asset.Down, 43000, 42000, true},
		{"down loses when price rose", asset.Down, 43000, 44000, false},
		{"unchanged price loses up", asset.Up, 43000, 43000, false},
		{"unchanged price loses down", asset.Down, 43000, 43000, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := NewPriceOracle(priceFeed(tc.current))
			p := &model.Prediction{
				Asset:      asset.BTC,
				Direction:  tc.direction,
				EntryPrice: decimal.NewFromInt(tc.entry),
			}
			won, err := o.Judge(context.Background(), p)
			require.NoError(t, err)
			assert.Equal(t, tc.want, won)
		})
	}
}

func TestPriceOracle_NoPrice(t *testing.T) {
	o := NewPriceOracle(priceFeed(43000))
	p := &model.Prediction{Asset: asset.ETH, Direction: asset.Up}

	_, err := o.Judge(context.Background(), p)
	assert.ErrorIs(t, err, feed.ErrNoPrice)
}

func TestRandomOracle_Extremes(t *testing.T) {
	always := NewRandomOracle(1.0)
	never := NewRandomOracle(0.0)
	p := &model.Prediction{Asset: asset.BTC, Direction: asset.Up}

	for i := 0; i < 20; i++ {
		won, err := always.Judge(context.Background(), p)
		require.NoError(t, err)
		assert.True(t, won)

		won, err = never.Judge(context.Background(), p)
		require.NoError(t, err)
		assert.False(t, won)
	}
}
