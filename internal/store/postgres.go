package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shardsim/paper-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
// Compound mutations run inside one transaction with a version-checked
// account update, so a lost optimistic race leaves nothing applied.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const accountColumns = `id, wallet_address, shm_tokens::TEXT, prediction_streak,
	total_predictions, correct_predictions, version, created_at, updated_at`

func (s *PostgresStore) CreateAccount(ctx context.Context, a *model.Account) (*model.Account, error) {
	// ON CONFLICT DO NOTHING keeps creation idempotent per wallet address;
	// the follow-up select returns whichever record won.
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, wallet_address, shm_tokens, prediction_streak,
		                       total_predictions, correct_predictions, version, created_at, updated_at)
		 VALUES ($1, $2, $3::NUMERIC, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (wallet_address) DO NOTHING`,
		a.ID, a.WalletAddress, a.Balance.String(),
		a.Streak, a.TotalPredictions, a.CorrectPredictions,
		a.Version, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create account %s: %w", a.WalletAddress, err)
	}
	return s.GetAccount(ctx, a.WalletAddress)
}

func (s *PostgresStore) GetAccount(ctx context.Context, walletAddress string) (*model.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE wallet_address = $1`, walletAddress)
	return scanAccount(row)
}

func (s *PostgresStore) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	var balance string

	err := row.Scan(&a.ID, &a.WalletAddress, &balance, &a.Streak,
		&a.TotalPredictions, &a.CorrectPredictions, &a.Version,
		&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}

	a.Balance, _ = decimal.NewFromString(balance)
	return &a, nil
}

// updateAccountTx applies the version-checked account update inside tx.
// Bumps the caller's version on success.
func updateAccountTx(ctx context.Context, tx pgx.Tx, a *model.Account) error {
	tag, err := tx.Exec(ctx,
		`UPDATE accounts
		 SET shm_tokens = $2::NUMERIC, prediction_streak = $3,
		     total_predictions = $4, correct_predictions = $5,
		     version = version + 1, updated_at = $6
		 WHERE id = $1 AND version = $7`,
		a.ID, a.Balance.String(), a.Streak,
		a.TotalPredictions, a.CorrectPredictions,
		a.UpdatedAt, a.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	a.Version++
	return nil
}

const predictionColumns = `id, account_id, asset, direction, confidence,
	entry_price::TEXT, timeframe, status, reward_tokens::TEXT,
	COALESCE(request_id, ''), created_at, resolved_at`

func (s *PostgresStore) GetPrediction(ctx context.Context, id string) (*model.Prediction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+predictionColumns+` FROM predictions WHERE id = $1`, id)
	return scanPrediction(row)
}

func (s *PostgresStore) GetPredictionByRequestID(ctx context.Context, accountID, requestID string) (*model.Prediction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+predictionColumns+` FROM predictions
		 WHERE account_id = $1 AND request_id = $2`, accountID, requestID)
	return scanPrediction(row)
}

func scanPrediction(row pgx.Row) (*model.Prediction, error) {
	var p model.Prediction
	var entryPrice, reward string

	err := row.Scan(&p.ID, &p.AccountID, &p.Asset, &p.Direction, &p.Confidence,
		&entryPrice, &p.Timeframe, &p.Status, &reward,
		&p.RequestID, &p.CreatedAt, &p.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan prediction: %w", err)
	}

	p.EntryPrice, _ = decimal.NewFromString(entryPrice)
	p.Reward, _ = decimal.NewFromString(reward)
	return &p, nil
}

func (s *PostgresStore) ListPredictions(ctx context.Context, accountID string) ([]model.Prediction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+predictionColumns+` FROM predictions
		 WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPredictions(rows)
}

func (s *PostgresStore) ListPendingPredictions(ctx context.Context, createdBefore time.Time) ([]model.Prediction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+predictionColumns+` FROM predictions
		 WHERE status = 'PENDING' AND created_at < $1
		 ORDER BY created_at`, createdBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPredictions(rows)
}

func collectPredictions(rows pgx.Rows) ([]model.Prediction, error) {
	var predictions []model.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, *p)
	}
	return predictions, rows.Err()
}

func (s *PostgresStore) ApplyPrediction(ctx context.Context, p *model.Prediction, account *model.Account) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if err := updateAccountTx(ctx, tx, account); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO predictions (id, account_id, asset, direction, confidence,
			                          entry_price, timeframe, status, reward_tokens,
			                          request_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7, $8, $9::NUMERIC, NULLIF($10, ''), $11)`,
			p.ID, p.AccountID, p.Asset, p.Direction, p.Confidence,
			p.EntryPrice.String(), p.Timeframe, p.Status, p.Reward.String(),
			p.RequestID, p.CreatedAt,
		)
		return err
	})
}

func (s *PostgresStore) ApplyResolution(ctx context.Context, p *model.Prediction, account *model.Account) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		// The status guard makes resolution one-way even under races:
		// a second resolver matches zero rows.
		tag, err := tx.Exec(ctx,
			`UPDATE predictions
			 SET status = $2, resolved_at = $3
			 WHERE id = $1 AND status = 'PENDING'`,
			p.ID, p.Status, p.ResolvedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrAlreadyResolved
		}
		return updateAccountTx(ctx, tx, account)
	})
}

const tradeColumns = `id, account_id, asset, side, amount::TEXT, price::TEXT,
	total_shm::TEXT, status, COALESCE(reference, ''), COALESCE(request_id, ''), created_at`

func (s *PostgresStore) GetTradeByRequestID(ctx context.Context, accountID, requestID string) (*model.Trade, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tradeColumns+` FROM trades
		 WHERE account_id = $1 AND request_id = $2`, accountID, requestID)
	return scanTrade(row)
}

func scanTrade(row pgx.Row) (*model.Trade, error) {
	var t model.Trade
	var amount, price, total string

	err := row.Scan(&t.ID, &t.AccountID, &t.Asset, &t.Side,
		&amount, &price, &total, &t.Status, &t.Reference, &t.RequestID, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan trade: %w", err)
	}

	t.Amount, _ = decimal.NewFromString(amount)
	t.Price, _ = decimal.NewFromString(price)
	t.TotalCost, _ = decimal.NewFromString(total)
	return &t, nil
}

func (s *PostgresStore) ListTrades(ctx context.Context, accountID string) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeColumns+` FROM trades
		 WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, *t)
	}
	return trades, rows.Err()
}

func (s *PostgresStore) ApplyTrade(ctx context.Context, t *model.Trade, account *model.Account) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if err := updateAccountTx(ctx, tx, account); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO trades (id, account_id, asset, side, amount, price,
			                     total_shm, status, reference, request_id, created_at)
			 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8,
			         NULLIF($9, ''), NULLIF($10, ''), $11)`,
			t.ID, t.AccountID, t.Asset, t.Side,
			t.Amount.String(), t.Price.String(), t.TotalCost.String(),
			t.Status, t.Reference, t.RequestID, t.CreatedAt,
		)
		return err
	})
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
