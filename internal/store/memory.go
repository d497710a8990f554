package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shardsim/paper-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu          sync.RWMutex
	accounts    map[string]*model.Account // keyed by wallet address
	accountIDs  map[string]string         // id → wallet address
	predictions map[string]*model.Prediction
	trades      []model.Trade
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:    make(map[string]*model.Account),
		accountIDs:  make(map[string]string),
		predictions: make(map[string]*model.Prediction),
	}
}

func (s *MemoryStore) CreateAccount(_ context.Context, a *model.Account) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.accounts[a.WalletAddress]; ok {
		copy := *existing
		return &copy, nil
	}

	// Store a copy to avoid external mutation.
	copy := *a
	s.accounts[a.WalletAddress] = &copy
	s.accountIDs[a.ID] = a.WalletAddress
	out := copy
	return &out, nil
}

func (s *MemoryStore) GetAccount(_ context.Context, walletAddress string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[walletAddress]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *a
	return &copy, nil
}

func (s *MemoryStore) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addr, ok := s.accountIDs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *s.accounts[addr]
	return &copy, nil
}

func (s *MemoryStore) GetPrediction(_ context.Context, id string) (*model.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.predictions[id]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *p
	return &copy, nil
}

func (s *MemoryStore) GetPredictionByRequestID(_ context.Context, accountID, requestID string) (*model.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.predictions {
		if p.AccountID == accountID && p.RequestID == requestID {
			copy := *p
			return &copy, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListPredictions(_ context.Context, accountID string) ([]model.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Prediction
	for _, p := range s.predictions {
		if p.AccountID == accountID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) ListPendingPredictions(_ context.Context, createdBefore time.Time) ([]model.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Prediction
	for _, p := range s.predictions {
		if p.Status == model.StatusPending && p.CreatedAt.Before(createdBefore) {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) ApplyPrediction(_ context.Context, p *model.Prediction, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveAccountLocked(account); err != nil {
		return err
	}
	copy := *p
	s.predictions[p.ID] = &copy
	return nil
}

func (s *MemoryStore) ApplyResolution(_ context.Context, p *model.Prediction, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.predictions[p.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != model.StatusPending {
		return ErrAlreadyResolved
	}
	if err := s.saveAccountLocked(account); err != nil {
		return err
	}
	copy := *p
	s.predictions[p.ID] = &copy
	return nil
}

func (s *MemoryStore) GetTradeByRequestID(_ context.Context, accountID, requestID string) (*model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.trades {
		if t.AccountID == accountID && t.RequestID == requestID {
			copy := t
			return &copy, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListTrades(_ context.Context, accountID string) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Trade
	for _, t := range s.trades {
		if t.AccountID == accountID {
			result = append(result, t)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) ApplyTrade(_ context.Context, t *model.Trade, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveAccountLocked(account); err != nil {
		return err
	}
	s.trades = append(s.trades, *t)
	return nil
}

// saveAccountLocked persists an account mutation with an optimistic version
// check. The caller's copy gets the bumped version on success. Must be
// called with s.mu held for writing.
func (s *MemoryStore) saveAccountLocked(a *model.Account) error {
	stored, ok := s.accounts[a.WalletAddress]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != a.Version {
		return ErrVersionConflict
	}
	a.Version++
	copy := *a
	s.accounts[a.WalletAddress] = &copy
	return nil
}
