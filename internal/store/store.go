// Package store defines the persistence interface for the paper engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shardsim/paper-engine/internal/model"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrVersionConflict is returned when a version-checked account update
	// lost the race against a concurrent writer. The caller must retry
	// from freshly read state.
	ErrVersionConflict = errors.New("store: account version conflict")

	// ErrAlreadyResolved is returned when ApplyResolution targets a
	// prediction that has already left PENDING.
	ErrAlreadyResolved = errors.New("store: prediction already resolved")
)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
//
// The Apply* methods persist a compound mutation (ledger record + account)
// as a single atomic call. Each checks the account's optimistic version and
// fails with ErrVersionConflict on a lost race, leaving no partial state.
type Store interface {
	// --- Accounts ---

	// CreateAccount creates the account for a wallet address, or returns
	// the existing record. Idempotent.
	CreateAccount(ctx context.Context, account *model.Account) (*model.Account, error)

	// GetAccount retrieves an account by wallet address.
	GetAccount(ctx context.Context, walletAddress string) (*model.Account, error)

	// GetAccountByID retrieves an account by its ID.
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)

	// --- Predictions ---

	// GetPrediction retrieves a prediction by ID.
	GetPrediction(ctx context.Context, id string) (*model.Prediction, error)

	// GetPredictionByRequestID looks up a prediction by its caller-supplied
	// request ID, for idempotent retries.
	GetPredictionByRequestID(ctx context.Context, accountID, requestID string) (*model.Prediction, error)

	// ListPredictions returns an account's predictions, newest first.
	ListPredictions(ctx context.Context, accountID string) ([]model.Prediction, error)

	// ListPendingPredictions returns all PENDING predictions created
	// before the cutoff, across accounts. Used by the resolution sweep.
	ListPendingPredictions(ctx context.Context, createdBefore time.Time) ([]model.Prediction, error)

	// ApplyPrediction appends a PENDING prediction and updates the owning
	// account (counter bump) atomically.
	ApplyPrediction(ctx context.Context, p *model.Prediction, account *model.Account) error

	// ApplyResolution marks a PENDING prediction terminal and updates the
	// owning account (reward, streak, counters) atomically. Returns
	// ErrAlreadyResolved if the prediction is no longer PENDING.
	ApplyResolution(ctx context.Context, p *model.Prediction, account *model.Account) error

	// --- Immutable trade ledger ---

	// GetTradeByRequestID looks up a trade by its caller-supplied request
	// ID, for idempotent retries.
	GetTradeByRequestID(ctx context.Context, accountID, requestID string) (*model.Trade, error)

	// ListTrades returns an account's trades, newest first.
	ListTrades(ctx context.Context, accountID string) ([]model.Trade, error)

	// ApplyTrade appends a COMPLETED trade and updates the owning
	// account's balance atomically.
	ApplyTrade(ctx context.Context, t *model.Trade, account *model.Account) error
}
