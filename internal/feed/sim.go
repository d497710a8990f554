package feed

import (
	"context"
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/shardsim/paper-engine/internal/asset"
)

// SimulatedSource generates a random walk around per-asset anchor prices.
// Used for development and demos where no exchange connectivity exists.
type SimulatedSource struct {
	mu      sync.Mutex
	current map[asset.Symbol]decimal.Decimal
	floors  map[asset.Symbol]decimal.Decimal
	// step is the relative half-width of each walk step.
	step float64
}

// NewSimulatedSource creates a simulated source starting at the given
// anchor prices.
func NewSimulatedSource(start, floors map[asset.Symbol]decimal.Decimal) *SimulatedSource {
	current := make(map[asset.Symbol]decimal.Decimal, len(start))
	for sym, price := range start {
		current[sym] = price
	}
	return &SimulatedSource{
		current: current,
		floors:  floors,
		step:    0.01,
	}
}

func (s *SimulatedSource) Name() string { return "sim" }

func (s *SimulatedSource) Prices(_ context.Context) (map[asset.Symbol]decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[asset.Symbol]decimal.Decimal, len(s.current))
	for sym, price := range s.current {
		delta := decimal.NewFromFloat((rand.Float64() - 0.5) * 2 * s.step)
		next := price.Add(price.Mul(delta))
		if floor, ok := s.floors[sym]; ok && floor.IsPositive() && next.LessThan(floor) {
			next = floor
		}
		s.current[sym] = next
		out[sym] = next
	}
	return out, nil
}
