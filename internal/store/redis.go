package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shardsim/paper-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateAccount(ctx context.Context, a *model.Account) (*model.Account, error) {
	created, err := s.primary.CreateAccount(ctx, a)
	if err != nil {
		return nil, err
	}
	s.cacheAccount(ctx, created)
	return created, nil
}

func (s *CachedStore) ApplyPrediction(ctx context.Context, p *model.Prediction, account *model.Account) error {
	if err := s.primary.ApplyPrediction(ctx, p, account); err != nil {
		return err
	}
	s.invalidateAccount(ctx, account)
	s.rdb.Del(ctx, predictionsKey(account.ID))
	return nil
}

func (s *CachedStore) ApplyResolution(ctx context.Context, p *model.Prediction, account *model.Account) error {
	if err := s.primary.ApplyResolution(ctx, p, account); err != nil {
		return err
	}
	s.invalidateAccount(ctx, account)
	s.rdb.Del(ctx, predictionsKey(account.ID))
	return nil
}

func (s *CachedStore) ApplyTrade(ctx context.Context, t *model.Trade, account *model.Account) error {
	if err := s.primary.ApplyTrade(ctx, t, account); err != nil {
		return err
	}
	s.invalidateAccount(ctx, account)
	s.rdb.Del(ctx, tradesKey(account.ID))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetAccount(ctx context.Context, walletAddress string) (*model.Account, error) {
	data, err := s.rdb.Get(ctx, accountKey(walletAddress)).Bytes()
	if err == nil {
		var a model.Account
		if json.Unmarshal(data, &a) == nil {
			return &a, nil
		}
	}

	a, err := s.primary.GetAccount(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	s.cacheAccount(ctx, a)
	return a, nil
}

func (s *CachedStore) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	// Try cache via id→address mapping.
	addr, err := s.rdb.Get(ctx, accountIDKey(id)).Result()
	if err == nil {
		return s.GetAccount(ctx, addr)
	}

	a, err := s.primary.GetAccountByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheAccount(ctx, a)
	return a, nil
}

func (s *CachedStore) ListPredictions(ctx context.Context, accountID string) ([]model.Prediction, error) {
	data, err := s.rdb.Get(ctx, predictionsKey(accountID)).Bytes()
	if err == nil {
		var predictions []model.Prediction
		if json.Unmarshal(data, &predictions) == nil {
			return predictions, nil
		}
	}

	predictions, err := s.primary.ListPredictions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(predictions); err == nil {
		s.rdb.Set(ctx, predictionsKey(accountID), data, s.ttl)
	}
	return predictions, nil
}

func (s *CachedStore) ListTrades(ctx context.Context, accountID string) ([]model.Trade, error) {
	data, err := s.rdb.Get(ctx, tradesKey(accountID)).Bytes()
	if err == nil {
		var trades []model.Trade
		if json.Unmarshal(data, &trades) == nil {
			return trades, nil
		}
	}

	trades, err := s.primary.ListTrades(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(trades); err == nil {
		s.rdb.Set(ctx, tradesKey(accountID), data, s.ttl)
	}
	return trades, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) GetPrediction(ctx context.Context, id string) (*model.Prediction, error) {
	return s.primary.GetPrediction(ctx, id)
}

func (s *CachedStore) GetPredictionByRequestID(ctx context.Context, accountID, requestID string) (*model.Prediction, error) {
	return s.primary.GetPredictionByRequestID(ctx, accountID, requestID)
}

func (s *CachedStore) ListPendingPredictions(ctx context.Context, createdBefore time.Time) ([]model.Prediction, error) {
	// The sweep must always see fresh pending state.
	return s.primary.ListPendingPredictions(ctx, createdBefore)
}

func (s *CachedStore) GetTradeByRequestID(ctx context.Context, accountID, requestID string) (*model.Trade, error) {
	return s.primary.GetTradeByRequestID(ctx, accountID, requestID)
}

// --- Cache helpers ---

func (s *CachedStore) cacheAccount(ctx context.Context, a *model.Account) {
	if data, err := json.Marshal(a); err == nil {
		s.rdb.Set(ctx, accountKey(a.WalletAddress), data, s.ttl)
		s.rdb.Set(ctx, accountIDKey(a.ID), a.WalletAddress, s.ttl)
	}
}

func (s *CachedStore) invalidateAccount(ctx context.Context, a *model.Account) {
	s.rdb.Del(ctx, accountKey(a.WalletAddress))
}

func accountKey(addr string) string   { return fmt.Sprintf("account:%s", addr) }
func accountIDKey(id string) string   { return fmt.Sprintf("account_id:%s", id) }
func predictionsKey(id string) string { return fmt.Sprintf("predictions:%s", id) }
func tradesKey(id string) string      { return fmt.Sprintf("trades:%s", id) }
