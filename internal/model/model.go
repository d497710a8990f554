// Package model defines the core domain types shared across the paper engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shardsim/paper-engine/internal/asset"
)

// Prediction statuses. A prediction transitions exactly once from
// StatusPending to a terminal status and is never re-resolved.
const (
	StatusPending = "PENDING"
	StatusWon     = "WON"
	StatusLost    = "LOST"
)

// Trade statuses. Trades settle immediately: no PENDING trade is ever
// persisted across calls.
const (
	TradeCompleted = "COMPLETED"
	TradeFailed    = "FAILED"
)

// Account is the single authoritative record per wallet address. The SHM
// token balance and the prediction statistics are mutated only through the
// prediction manager and the trade engine, each mutation applied as one
// version-checked store call.
type Account struct {
	ID                 string          `json:"id" db:"id"`
	WalletAddress      string          `json:"wallet_address" db:"wallet_address"`
	Balance            decimal.Decimal `json:"shm_tokens" db:"shm_tokens"`
	Streak             int             `json:"prediction_streak" db:"prediction_streak"`
	TotalPredictions   int             `json:"total_predictions" db:"total_predictions"`
	CorrectPredictions int             `json:"correct_predictions" db:"correct_predictions"`
	Version            int64           `json:"version" db:"version"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// Accuracy returns correct/total as a percentage, 0 when no predictions
// have been made.
func (a *Account) Accuracy() decimal.Decimal {
	if a.TotalPredictions == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(a.CorrectPredictions)).
		Div(decimal.NewFromInt(int64(a.TotalPredictions))).
		Mul(decimal.NewFromInt(100)).Round(2)
}

// RecordPrediction bumps the total-predictions counter. Applied together
// with the prediction append in one store call.
func (a *Account) RecordPrediction(now time.Time) {
	a.TotalPredictions++
	a.UpdatedAt = now
}

// SettleOutcome applies a prediction outcome to the account: a win credits
// the precomputed reward and extends the streak, a loss resets the streak.
func (a *Account) SettleOutcome(won bool, reward decimal.Decimal, now time.Time) {
	if won {
		a.Balance = a.Balance.Add(reward)
		a.CorrectPredictions++
		a.Streak++
	} else {
		a.Streak = 0
	}
	a.UpdatedAt = now
}

// SettleTrade adjusts the balance for an executed trade: buys debit the
// total cost, sells credit the proceeds.
func (a *Account) SettleTrade(side asset.Side, totalCost decimal.Decimal, now time.Time) {
	if side == asset.Buy {
		a.Balance = a.Balance.Sub(totalCost)
	} else {
		a.Balance = a.Balance.Add(totalCost)
	}
	a.UpdatedAt = now
}

// Prediction is a directional bet. The reward is computed once at creation
// and credited only when the prediction resolves WON.
type Prediction struct {
	ID         string          `json:"id" db:"id"`
	AccountID  string          `json:"account_id" db:"account_id"`
	Asset      asset.Symbol    `json:"asset" db:"asset"`
	Direction  asset.Direction `json:"direction" db:"direction"`
	Confidence int             `json:"confidence" db:"confidence"`
	EntryPrice decimal.Decimal `json:"entry_price" db:"entry_price"`
	Timeframe  asset.Timeframe `json:"timeframe" db:"timeframe"`
	Status     string          `json:"status" db:"status"`
	Reward     decimal.Decimal `json:"reward_tokens" db:"reward_tokens"`
	RequestID  string          `json:"request_id,omitempty" db:"request_id"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty" db:"resolved_at"`
}

// Resolved reports whether the prediction has reached a terminal status.
func (p *Prediction) Resolved() bool {
	return p.Status != StatusPending
}

// Trade is an immutable record of an executed buy or sell.
// Once recorded COMPLETED it contributes permanently to holdings.
type Trade struct {
	ID        string          `json:"id" db:"id"`
	AccountID string          `json:"account_id" db:"account_id"`
	Asset     asset.Symbol    `json:"asset" db:"asset"`
	Side      asset.Side      `json:"side" db:"side"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Price     decimal.Decimal `json:"price" db:"price"`
	TotalCost decimal.Decimal `json:"total_shm" db:"total_shm"`
	Status    string          `json:"status" db:"status"`
	Reference string          `json:"reference,omitempty" db:"reference"`
	RequestID string          `json:"request_id,omitempty" db:"request_id"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// PricePoint is one sample of the bounded rolling price history.
type PricePoint struct {
	Time   time.Time                        `json:"time"`
	Prices map[asset.Symbol]decimal.Decimal `json:"prices"`
}
