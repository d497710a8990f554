package prediction

import (
	"context"
	"math/rand"

	"github.com/shardsim/paper-engine/internal/asset"
	"github.com/shardsim/paper-engine/internal/feed"
	"github.com/shardsim/paper-engine/internal/model"
)

// Oracle decides whether a matured prediction won. Implementations may be
// simulated or market-based; the manager and sweeper are agnostic.
type Oracle interface {
	Judge(ctx context.Context, p *model.Prediction) (bool, error)
}

// RandomOracle resolves predictions by coin flip with a configurable win
// rate. Demo-scale stand-in for a real outcome evaluator.
type RandomOracle struct {
	// WinRate is the probability of a win in [0, 1].
	WinRate float64
}

// NewRandomOracle creates a random oracle with the given win rate.
func NewRandomOracle(winRate float64) *RandomOracle {
	return &RandomOracle{WinRate: winRate}
}

func (o *RandomOracle) Judge(_ context.Context, _ *model.Prediction) (bool, error) {
	return rand.Float64() < o.WinRate, nil
}

// PriceOracle compares the current feed price against the prediction's
// entry snapshot: UP wins when the price rose, DOWN wins when it fell.
// An unchanged price loses either way.
type PriceOracle struct {
	feed *feed.Feed
}

// NewPriceOracle creates a price-comparison oracle backed by the feed.
func NewPriceOracle(f *feed.Feed) *PriceOracle {
	return &PriceOracle{feed: f}
}

func (o *PriceOracle) Judge(_ context.Context, p *model.Prediction) (bool, error) {
	current, err := o.feed.CurrentPrice(p.Asset)
	if err != nil {
		return false, err
	}
	if p.Direction == asset.Up {
		return current.GreaterThan(p.EntryPrice), nil
	}
	return current.LessThan(p.EntryPrice), nil
}
