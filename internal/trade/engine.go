// Package trade provides the trade execution engine and the HTTP surface
// for accounts, trades, predictions, prices, and portfolios.
//
// All monetary values use shopspring/decimal — never float64 for money.
package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shardsim/paper-engine/internal/asset"
	"github.com/shardsim/paper-engine/internal/metrics"
	"github.com/shardsim/paper-engine/internal/model"
	"github.com/shardsim/paper-engine/internal/portfolio"
	"github.com/shardsim/paper-engine/internal/risk"
	"github.com/shardsim/paper-engine/internal/store"
)

var (
	// ErrInvalidAmount is returned for a non-positive trade amount.
	ErrInvalidAmount = errors.New("trade: amount must be positive")

	// ErrInsufficientFunds is returned when a buy's total cost exceeds the
	// account's SHM balance. No mutation is applied.
	ErrInsufficientFunds = errors.New("trade: insufficient SHM balance")

	// ErrInsufficientHoldings is returned when a sell exceeds the derived
	// holdings of the asset. No mutation is applied.
	ErrInsufficientHoldings = errors.New("trade: insufficient holdings")
)

// maxRetries bounds optimistic-concurrency retries before the conflict is
// surfaced to the caller as a transient failure.
const maxRetries = 3

// Engine validates and executes simulated buy/sell orders. An execute call
// either fully succeeds at the supplied price or fails outright: no partial
// fills, no order book, no slippage.
type Engine struct {
	store   store.Store
	limiter *risk.Limiter
}

// NewEngine creates a trade engine.
func NewEngine(st store.Store, limiter *risk.Limiter) *Engine {
	return &Engine{store: st, limiter: limiter}
}

// ExecuteParams are the inputs for Execute. Price is a feed snapshot taken
// by the caller, never user input.
type ExecuteParams struct {
	WalletAddress string
	Asset         asset.Symbol
	Side          asset.Side
	Amount        decimal.Decimal
	Price         decimal.Decimal
	RequestID     string // optional, for idempotent retries
}

// Execute validates the order against the account's balance and derived
// holdings, then appends a COMPLETED trade and adjusts the balance in one
// atomic store call. Holdings are always recomputed from the full trade
// ledger, never read from a cached value.
//
// Replaying a request ID returns the already-recorded trade.
func (e *Engine) Execute(ctx context.Context, params ExecuteParams) (*model.Trade, error) {
	if !params.Amount.IsPositive() {
		metrics.TradeRejections.WithLabelValues("invalid_amount").Inc()
		return nil, ErrInvalidAmount
	}
	if _, err := asset.ParseSymbol(string(params.Asset)); err != nil {
		metrics.TradeRejections.WithLabelValues("invalid_asset").Inc()
		return nil, err
	}
	if _, err := asset.ParseSide(string(params.Side)); err != nil {
		metrics.TradeRejections.WithLabelValues("invalid_side").Inc()
		return nil, err
	}

	account, err := e.store.GetAccount(ctx, params.WalletAddress)
	if err != nil {
		return nil, err
	}

	if params.RequestID != "" {
		existing, err := e.store.GetTradeByRequestID(ctx, account.ID, params.RequestID)
		if err == nil {
			return existing, nil
		}
		// Fail closed on lookup errors: treating one as "not found" could
		// record the trade twice.
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("replay lookup: %w", err)
		}
	}

	totalCost := params.Amount.Mul(params.Price)
	now := time.Now().UTC()

	for attempt := 0; ; attempt++ {
		// Validate fully in memory against fresh state, then apply the
		// mutation as a single persistence call.
		trades, err := e.store.ListTrades(ctx, account.ID)
		if err != nil {
			return nil, fmt.Errorf("load trade ledger: %w", err)
		}

		if err := e.validate(params, account, trades, totalCost); err != nil {
			return nil, err
		}

		t := &model.Trade{
			ID:        uuid.New().String(),
			AccountID: account.ID,
			Asset:     params.Asset,
			Side:      params.Side,
			Amount:    params.Amount,
			Price:     params.Price,
			TotalCost: totalCost,
			Status:    model.TradeCompleted,
			RequestID: params.RequestID,
			CreatedAt: now,
		}

		fresh := *account
		fresh.SettleTrade(params.Side, totalCost, now)

		err = e.store.ApplyTrade(ctx, t, &fresh)
		if err == nil {
			metrics.TradesTotal.WithLabelValues(string(t.Asset), string(t.Side)).Inc()
			return t, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) || attempt >= maxRetries {
			return nil, fmt.Errorf("execute trade: %w", err)
		}

		// Lost the optimistic race; re-read and re-validate against the
		// account's new state.
		metrics.VersionConflicts.Inc()
		account, err = e.store.GetAccount(ctx, params.WalletAddress)
		if err != nil {
			return nil, err
		}
	}
}

func (e *Engine) validate(params ExecuteParams, account *model.Account, trades []model.Trade, totalCost decimal.Decimal) error {
	if params.Side == asset.Buy {
		if totalCost.GreaterThan(account.Balance) {
			metrics.TradeRejections.WithLabelValues("insufficient_funds").Inc()
			return fmt.Errorf("%w: need %s, have %s",
				ErrInsufficientFunds, totalCost, account.Balance)
		}
		if e.limiter != nil {
			holding := portfolio.Holding(trades, params.Asset)
			invested := portfolio.TotalInvested(trades)
			if err := e.limiter.CheckBuy(holding, params.Amount, invested, totalCost); err != nil {
				metrics.TradeRejections.WithLabelValues("risk_limit").Inc()
				return err
			}
		}
		return nil
	}

	holding := portfolio.Holding(trades, params.Asset)
	if params.Amount.GreaterThan(holding) {
		metrics.TradeRejections.WithLabelValues("insufficient_holdings").Inc()
		return fmt.Errorf("%w: selling %s %s, hold %s",
			ErrInsufficientHoldings, params.Amount, params.Asset, holding)
	}
	return nil
}

// Portfolio derives an account's portfolio summary from the trade ledger
// and current prices.
func (e *Engine) Portfolio(ctx context.Context, walletAddress string, prices map[asset.Symbol]decimal.Decimal) (*model.Account, portfolio.Summary, error) {
	account, err := e.store.GetAccount(ctx, walletAddress)
	if err != nil {
		return nil, portfolio.Summary{}, err
	}
	trades, err := e.store.ListTrades(ctx, account.ID)
	if err != nil {
		return nil, portfolio.Summary{}, err
	}
	return account, portfolio.Compute(trades, prices), nil
}
