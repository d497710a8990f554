// Package portfolio derives holdings, portfolio value, invested capital,
// and P&L from the immutable trade ledger and current prices. Everything
// here is a pure function of its inputs: no holdings value is ever cached
// or stored, so the ledger stays the single source of truth.
package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/shardsim/paper-engine/internal/asset"
	"github.com/shardsim/paper-engine/internal/model"
)

// Summary is the derived view of an account's portfolio.
type Summary struct {
	Holdings      map[asset.Symbol]decimal.Decimal `json:"holdings"`
	Value         decimal.Decimal                  `json:"portfolio_value"`
	TotalInvested decimal.Decimal                  `json:"total_invested"`
	PnL           decimal.Decimal                  `json:"pnl"`
	PnLPercent    decimal.Decimal                  `json:"pnl_percent"`
	TradeCount    int                              `json:"trade_count"`
}

// Holdings computes the net quantity per asset: the signed sum over all
// COMPLETED trades of +amount for BUY and -amount for SELL.
func Holdings(trades []model.Trade) map[asset.Symbol]decimal.Decimal {
	holdings := make(map[asset.Symbol]decimal.Decimal)
	for _, t := range trades {
		if t.Status != model.TradeCompleted {
			continue
		}
		if t.Side == asset.Buy {
			holdings[t.Asset] = holdings[t.Asset].Add(t.Amount)
		} else {
			holdings[t.Asset] = holdings[t.Asset].Sub(t.Amount)
		}
	}
	return holdings
}

// Holding returns the net quantity of one asset.
func Holding(trades []model.Trade, sym asset.Symbol) decimal.Decimal {
	return Holdings(trades)[sym]
}

// TotalInvested sums the total cost of all COMPLETED BUY trades.
func TotalInvested(trades []model.Trade) decimal.Decimal {
	invested := decimal.Zero
	for _, t := range trades {
		if t.Status == model.TradeCompleted && t.Side == asset.Buy {
			invested = invested.Add(t.TotalCost)
		}
	}
	return invested
}

// Compute derives the full portfolio summary from the trade ledger and
// current prices. Assets without a quoted price contribute zero value.
func Compute(trades []model.Trade, prices map[asset.Symbol]decimal.Decimal) Summary {
	holdings := Holdings(trades)

	value := decimal.Zero
	for sym, qty := range holdings {
		if price, ok := prices[sym]; ok {
			value = value.Add(qty.Mul(price))
		}
	}

	invested := TotalInvested(trades)
	pnl := value.Sub(invested)

	pnlPercent := decimal.Zero
	if invested.IsPositive() {
		pnlPercent = pnl.Div(invested).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return Summary{
		Holdings:      holdings,
		Value:         value,
		TotalInvested: invested,
		PnL:           pnl,
		PnLPercent:    pnlPercent,
		TradeCount:    len(trades),
	}
}
