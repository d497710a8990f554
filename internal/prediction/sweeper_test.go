package prediction

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
	"github.com/shardsim/paper-engine/internal/store"
)

// fixedOracle always returns the same verdict.
type fixedOracle struct {
	won bool
	err error
}

func (o fixedOracle) Judge(context.Context, *model.Prediction) (bool, error) {
	return o.won, o.err
}

func backdatedPrediction(t *testing.T, st store.Store, account *model.Account, age time.Duration) *model.Prediction {
	t.Helper()
	created := time.Now().UTC().Add(-age)
	p := &model.Prediction{
		ID:         uuid.NewString(),
		AccountID:  account.ID,
		Asset:      asset.BTC,
		Direction:  asset.Up,
		Confidence: 80,
		EntryPrice: decimal.NewFromInt(43250),
		Timeframe:  asset.Timeframe("1H"),
		Status:     model.StatusPending,
		Reward:     RewardTokens(80),
		CreatedAt:  created,
	}
	account.RecordPrediction(created)
	require.NoError(t, st.ApplyPrediction(context.Background(), p, account))
	return p
}

func TestSweep_ResolvesMaturedOnly(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	m := NewManager(st, nil)
	account := seedAccount(t, st, "0xabc")

	matured := backdatedPrediction(t, st, account, 10*time.Minute)
	young := backdatedPrediction(t, st, account, 10*time.Second)

	s := NewSweeper(st, m, fixedOracle{won: true}, 6*time.Minute, time.Minute)
	s.Sweep(ctx)

	got, err := st.GetPrediction(ctx, matured.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusWon, got.Status)

	got, err = st.GetPrediction(ctx, young.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status, "young predictions must be left alone")

	fresh, err := st.GetAccount(ctx, "0xabc")
	require.NoError(t, err)
	assert.True(t, fresh.Balance.Equal(decimal.NewFromInt(113)),
		"balance = %s, want 113", fresh.Balance)
}

func TestSweep_SecondPassIsNoOp(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	m := NewManager(st, nil)
	account := seedAccount(t, st, "0xabc")

	backdatedPrediction(t, st, account, 10*time.Minute)

	s := NewSweeper(st, m, fixedOracle{won: true}, 6*time.Minute, time.Minute)
	s.Sweep(ctx)
	s.Sweep(ctx)

	fresh, err := st.GetAccount(ctx, "0xabc")
	require.NoError(t, err)
	assert.True(t, fresh.Balance.Equal(decimal.NewFromInt(113)),
		"second sweep must not re-credit, balance = %s", fresh.Balance)
}

func TestSweep_OracleFailureSkipsPrediction(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	m := NewManager(st, nil)
	account := seedAccount(t, st, "0xabc")

	p := backdatedPrediction(t, st, account, 10*time.Minute)

	s := NewSweeper(st, m, fixedOracle{err: errors.New("no price")}, 6*time.Minute, time.Minute)
	s.Sweep(ctx)

	got, err := st.GetPrediction(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status,
		"a failing oracle must leave the prediction pending for the next pass")
}
