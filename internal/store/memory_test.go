package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardsim/paper-engine/internal/asset"
	"github.com/shardsim/paper-engine/internal/model"
)

func newTestAccount(addr string) *model.Account {
	now := time.Now().UTC()
	return &model.Account{
		ID:            uuid.NewString(),
		WalletAddress: addr,
		Balance:       decimal.NewFromInt(100),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestCreateAccount_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first, err := s.CreateAccount(ctx, newTestAccount("0xabc"))
	require.NoError(t, err)

	second, err := s.CreateAccount(ctx, newTestAccount("0xabc"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "second create must return the existing record")
	assert.True(t, second.Balance.Equal(decimal.NewFromInt(100)))
}

func TestGetAccount_NotFound(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.GetAccount(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetAccountByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyTrade_VersionConflict(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	created, err := s.CreateAccount(ctx, newTestAccount("0xabc"))
	require.NoError(t, err)

	stale := *created
	fresh := *created

	tr := &model.Trade{
		ID:        uuid.NewString(),
		AccountID: created.ID,
		Asset:     asset.BTC,
		Side:      asset.Buy,
		Amount:    decimal.NewFromFloat(0.001),
		Price:     decimal.NewFromInt(40000),
		TotalCost: decimal.NewFromInt(40),
		Status:    model.TradeCompleted,
		CreatedAt: time.Now().UTC(),
	}

	fresh.SettleTrade(asset.Buy, tr.TotalCost, time.Now().UTC())
	require.NoError(t, s.ApplyTrade(ctx, tr, &fresh))

	// The stale copy carries the pre-update version.
	stale.SettleTrade(asset.Buy, tr.TotalCost, time.Now().UTC())
	err = s.ApplyTrade(ctx, tr, &stale)
	assert.ErrorIs(t, err, ErrVersionConflict)

	got, err := s.GetAccount(ctx, "0xabc")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(60)),
		"conflicting write must not apply, balance = %s", got.Balance)
}

func TestApplyResolution_OneWay(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	account, err := s.CreateAccount(ctx, newTestAccount("0xabc"))
	require.NoError(t, err)

	p := &model.Prediction{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		Asset:     asset.BTC,
		Direction: asset.Up,
		Status:    model.StatusPending,
		Reward:    decimal.NewFromInt(13),
		CreatedAt: time.Now().UTC(),
	}
	account.RecordPrediction(time.Now().UTC())
	require.NoError(t, s.ApplyPrediction(ctx, p, account))

	now := time.Now().UTC()
	resolved := *p
	resolved.Status = model.StatusWon
	resolved.ResolvedAt = &now
	account.SettleOutcome(true, p.Reward, now)
	require.NoError(t, s.ApplyResolution(ctx, &resolved, account))

	// A second resolution attempt must be rejected regardless of outcome.
	again := *p
	again.Status = model.StatusLost
	err = s.ApplyResolution(ctx, &again, account)
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	got, err := s.GetPrediction(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusWon, got.Status)
}

func TestListPredictions_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	account, err := s.CreateAccount(ctx, newTestAccount("0xabc"))
	require.NoError(t, err)

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		p := &model.Prediction{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			Asset:     asset.BTC,
			Direction: asset.Up,
			Status:    model.StatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		account.RecordPrediction(p.CreatedAt)
		require.NoError(t, s.ApplyPrediction(ctx, p, account))
	}

	list, err := s.ListPredictions(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.True(t, !list[i].CreatedAt.After(list[i-1].CreatedAt),
			"predictions must be ordered newest first")
	}
}

func TestListPendingPredictions_CutoffAndStatus(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	account, err := s.CreateAccount(ctx, newTestAccount("0xabc"))
	require.NoError(t, err)

	base := time.Now().UTC()
	old := &model.Prediction{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		Asset:     asset.BTC,
		Direction: asset.Up,
		Status:    model.StatusPending,
		CreatedAt: base.Add(-10 * time.Minute),
	}
	recent := &model.Prediction{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		Asset:     asset.ETH,
		Direction: asset.Down,
		Status:    model.StatusPending,
		CreatedAt: base,
	}
	account.RecordPrediction(base)
	require.NoError(t, s.ApplyPrediction(ctx, old, account))
	account.RecordPrediction(base)
	require.NoError(t, s.ApplyPrediction(ctx, recent, account))

	pending, err := s.ListPendingPredictions(ctx, base.Add(-5*time.Minute))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, old.ID, pending[0].ID)
}

func TestGetTradeByRequestID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	account, err := s.CreateAccount(ctx, newTestAccount("0xabc"))
	require.NoError(t, err)

	tr := &model.Trade{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		Asset:     asset.ETH,
		Side:      asset.Buy,
		Amount:    decimal.NewFromInt(1),
		Price:     decimal.NewFromInt(2000),
		TotalCost: decimal.NewFromInt(2000),
		Status:    model.TradeCompleted,
		RequestID: "req-1",
		CreatedAt: time.Now().UTC(),
	}
	account.SettleTrade(asset.Buy, tr.TotalCost, time.Now().UTC())
	require.NoError(t, s.ApplyTrade(ctx, tr, account))

	got, err := s.GetTradeByRequestID(ctx, account.ID, "req-1")
	require.NoError(t, err)
	assert.Equal(t, tr.ID, got.ID)

	_, err = s.GetTradeByRequestID(ctx, account.ID, "req-2")
	assert.True(t, errors.Is(err, ErrNotFound))
}
