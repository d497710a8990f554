// Package prediction implements the prediction lifecycle: creation of
// directional bets, one-way resolution to WON or LOST, reward crediting,
// and the background sweep that matures pending predictions.
package prediction

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
	"github.com/shardsim/paper-engine/internal/store"
)

var (
	// ErrConfidenceRange is returned when confidence is outside [50, 100].
	ErrConfidenceRange = errors.New("prediction: confidence must be between 50 and 100")

	// ErrAlreadyResolved reports that a prediction was already terminal.
	// Safe no-op, informational rather than fatal.
	ErrAlreadyResolved = errors.New("prediction: already resolved")
)

// maxRetries bounds optimistic-concurrency retries before the conflict is
// surfaced to the caller as a transient failure.
const maxRetries = 3

// Confidence bounds.
const (
	minConfidence = 50
	maxConfidence = 100
)

// Events receives notifications about resolved predictions. Implementations
// must not block.
type Events interface {
	PredictionResolved(p model.Prediction, won bool)
}

// Manager owns the prediction lifecycle. All account mutations go through
// version-checked compound store calls; a lost race is retried from fresh
// state up to maxRetries times.
type Manager struct {
	store  store.Store
	events Events // optional
}

// NewManager creates a prediction manager. Pass nil for events if no
// notifications are needed.
func NewManager(st store.Store, events Events) *Manager {
	return &Manager{store: st, events: events}
}

// RewardTokens computes the reward for a confidence level:
// floor(confidence/10) + 5, so 10–15 SHM across the valid range.
// Computed once at creation and immutable afterwards.
func RewardTokens(confidence int) decimal.Decimal {
	return decimal.NewFromInt(int64(confidence/10 + 5))
}

// CreateParams are the validated inputs for Create.
type CreateParams struct {
	WalletAddress string
	Asset         asset.Symbol
	Direction     asset.Direction
	Confidence    int
	EntryPrice    decimal.Decimal
	Timeframe     asset.Timeframe
	RequestID     string // optional, for idempotent retries
}

// Create appends a PENDING prediction and bumps the account's
// total-predictions counter in one atomic store call. The entry price is a
// snapshot taken by the caller from the price feed, never user input.
//
// Replaying a request ID returns the already-created prediction.
func (m *Manager) Create(ctx context.Context, params CreateParams) (*model.Prediction, error) {
	if params.Confidence < minConfidence || params.Confidence > maxConfidence {
		return nil, fmt.Errorf("%w: got %d", ErrConfidenceRange, params.Confidence)
	}
	if _, err := asset.ParseSymbol(string(params.Asset)); err != nil {
		return nil, err
	}
	if _, err := asset.ParseDirection(string(params.Direction)); err != nil {
		return nil, err
	}
	if _, err := asset.ParseTimeframe(string(params.Timeframe)); err != nil {
		return nil, err
	}

	account, err := m.store.GetAccount(ctx, params.WalletAddress)
	if err != nil {
		return nil, err
	}

	if params.RequestID != "" {
		existing, err := m.store.GetPredictionByRequestID(ctx, account.ID, params.RequestID)
		if err == nil {
			return existing, nil
		}
		// Fail closed on lookup errors: treating one as "not found" could
		// append the prediction twice.
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("replay lookup: %w", err)
		}
	}

	now := time.Now().UTC()
	p := &model.Prediction{
		ID:         uuid.New().String(),
		AccountID:  account.ID,
		Asset:      params.Asset,
		Direction:  params.Direction,
		Confidence: params.Confidence,
		EntryPrice: params.EntryPrice,
		Timeframe:  params.Timeframe,
		Status:     model.StatusPending,
		Reward:     RewardTokens(params.Confidence),
		RequestID:  params.RequestID,
		CreatedAt:  now,
	}

	for attempt := 0; ; attempt++ {
		account.RecordPrediction(now)
		err := m.store.ApplyPrediction(ctx, p, account)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrVersionConflict) || attempt >= maxRetries {
			return nil, fmt.Errorf("create prediction: %w", err)
		}
		// Lost the optimistic race; re-read and retry with fresh state.
		account, err = m.store.GetAccount(ctx, params.WalletAddress)
		if err != nil {
			return nil, err
		}
	}

	metrics.PredictionsCreated.WithLabelValues(string(p.Asset), string(p.Direction)).Inc()
	return p, nil
}

// Resolve transitions a PENDING prediction to WON or LOST, credits the
// precomputed reward on a win, and updates streak and accuracy counters —
// all as one atomic store call. Resolving a terminal prediction is a no-op
// reported as ErrAlreadyResolved.
//
// The outcome boolean comes from an external oracle; the manager does not
// judge market truth.
func (m *Manager) Resolve(ctx context.Context, predictionID string, won bool) (*model.Prediction, error) {
	p, err := m.store.GetPrediction(ctx, predictionID)
	if err != nil {
		return nil, err
	}
	if p.Resolved() {
		return p, ErrAlreadyResolved
	}

	now := time.Now().UTC()
	if won {
		p.Status = model.StatusWon
	} else {
		p.Status = model.StatusLost
	}
	p.ResolvedAt = &now

	account, err := m.store.GetAccountByID(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		fresh := *account
		fresh.SettleOutcome(won, p.Reward, now)
		err := m.store.ApplyResolution(ctx, p, &fresh)
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrAlreadyResolved) {
			// Another resolver got there first; report the stored state.
			stored, getErr := m.store.GetPrediction(ctx, predictionID)
			if getErr != nil {
				return nil, getErr
			}
			return stored, ErrAlreadyResolved
		}
		if !errors.Is(err, store.ErrVersionConflict) || attempt >= maxRetries {
			return nil, fmt.Errorf("resolve prediction %s: %w", predictionID, err)
		}
		account, err = m.store.GetAccountByID(ctx, p.AccountID)
		if err != nil {
			return nil, err
		}
	}

	metrics.PredictionsResolved.WithLabelValues(p.Status).Inc()
	if won {
		metrics.RewardsCredited.Add(p.Reward.InexactFloat64())
	}
	if m.events != nil {
		m.events.PredictionResolved(*p, won)
	}
	return p, nil
}

// List returns the account's predictions, newest first.
func (m *Manager) List(ctx context.Context, walletAddress string) ([]model.Prediction, error) {
	account, err := m.store.GetAccount(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	return m.store.ListPredictions(ctx, account.ID)
}
