package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"trading-journal/internal/errors"
	"trading-journal/internal/models"
)

// MemoryStore implements DocumentStore in memory. It backs tests and the
// throwaway demo mode; semantics match the SQLite store, including the
// snapshot feed.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]models.TradingAccount // id -> record
	trades   map[string]models.Trade

	accountHub *snapshotHub[models.TradingAccount]
	tradeHub   *snapshotHub[models.Trade]

	// FailTradeCreateFor injects a create failure for the given account
	// ids, for exercising partial replication in tests.
	FailTradeCreateFor map[string]error
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:   make(map[string]models.TradingAccount),
		trades:     make(map[string]models.Trade),
		accountHub: newSnapshotHub[models.TradingAccount](),
		tradeHub:   newSnapshotHub[models.Trade](),
	}
}

// Close closes every open subscription.
func (s *MemoryStore) Close() error {
	s.accountHub.closeAll()
	s.tradeHub.closeAll()
	return nil
}

// CreateAccount persists a new account, assigning its id and timestamps.
func (s *MemoryStore) CreateAccount(ctx context.Context, acct models.TradingAccount) (models.TradingAccount, error) {
	now := time.Now().UTC()
	acct.ID = NewDocumentID()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	s.mu.Lock()
	s.accounts[acct.ID] = acct
	s.mu.Unlock()

	s.notifyAccounts(acct.OwnerID)
	return acct, nil
}

// GetAccount retrieves a single account.
func (s *MemoryStore) GetAccount(ctx context.Context, ownerID, id string) (models.TradingAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok || acct.OwnerID != ownerID {
		return models.TradingAccount{}, errors.ErrAccountNotFound
	}
	return acct, nil
}

// ListAccounts returns every account for the owner.
func (s *MemoryStore) ListAccounts(ctx context.Context, ownerID string) ([]models.TradingAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listAccountsLocked(ownerID), nil
}

func (s *MemoryStore) listAccountsLocked(ownerID string) []models.TradingAccount {
	var accounts []models.TradingAccount
	for _, acct := range s.accounts {
		if acct.OwnerID == ownerID {
			accounts = append(accounts, acct)
		}
	}
	// Stable iteration order keeps snapshots deterministic.
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts
}

// PutAccount replaces the stored record, refreshing UpdatedAt.
func (s *MemoryStore) PutAccount(ctx context.Context, acct models.TradingAccount) error {
	s.mu.Lock()
	existing, ok := s.accounts[acct.ID]
	if !ok || existing.OwnerID != acct.OwnerID {
		s.mu.Unlock()
		return errors.ErrAccountNotFound
	}
	acct.UpdatedAt = time.Now().UTC()
	s.accounts[acct.ID] = acct
	s.mu.Unlock()

	s.notifyAccounts(acct.OwnerID)
	return nil
}

// DeleteAccount removes the account record.
func (s *MemoryStore) DeleteAccount(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	acct, ok := s.accounts[id]
	if !ok || acct.OwnerID != ownerID {
		s.mu.Unlock()
		return errors.ErrAccountNotFound
	}
	delete(s.accounts, id)
	s.mu.Unlock()

	s.notifyAccounts(ownerID)
	return nil
}

// CreateTrade persists a new trade, assigning its id and timestamps.
func (s *MemoryStore) CreateTrade(ctx context.Context, trade models.Trade) (models.Trade, error) {
	if err, ok := s.FailTradeCreateFor[trade.AccountID]; ok {
		return models.Trade{}, err
	}

	now := time.Now().UTC()
	trade.ID = NewDocumentID()
	trade.CreatedAt = now
	trade.UpdatedAt = now

	s.mu.Lock()
	s.trades[trade.ID] = trade
	s.mu.Unlock()

	s.notifyTrades(trade.OwnerID)
	return trade, nil
}

// GetTrade retrieves a single trade.
func (s *MemoryStore) GetTrade(ctx context.Context, ownerID, id string) (models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trade, ok := s.trades[id]
	if !ok || trade.OwnerID != ownerID {
		return models.Trade{}, errors.ErrTradeNotFound
	}
	return trade, nil
}

// ListTrades retrieves trades matching the filter, newest entry first.
func (s *MemoryStore) ListTrades(ctx context.Context, ownerID string, filter TradeFilter) ([]models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listTradesLocked(ownerID, filter), nil
}

func (s *MemoryStore) listTradesLocked(ownerID string, filter TradeFilter) []models.Trade {
	var trades []models.Trade
	for _, trade := range s.trades {
		if trade.OwnerID != ownerID {
			continue
		}
		if filter.AccountID != "" && trade.AccountID != filter.AccountID {
			continue
		}
		if filter.Symbol != "" && trade.Symbol != filter.Symbol {
			continue
		}
		if !filter.StartTime.IsZero() && trade.EntryTime.Before(filter.StartTime) {
			continue
		}
		if !filter.EndTime.IsZero() && trade.EntryTime.After(filter.EndTime) {
			continue
		}
		trades = append(trades, trade)
	}

	sort.Slice(trades, func(i, j int) bool {
		if !trades[i].EntryTime.Equal(trades[j].EntryTime) {
			return trades[i].EntryTime.After(trades[j].EntryTime)
		}
		return trades[i].ID < trades[j].ID
	})

	if filter.Limit > 0 && len(trades) > filter.Limit {
		trades = trades[:filter.Limit]
	}
	return trades
}

// PutTrade replaces the stored record, refreshing UpdatedAt.
func (s *MemoryStore) PutTrade(ctx context.Context, trade models.Trade) error {
	s.mu.Lock()
	existing, ok := s.trades[trade.ID]
	if !ok || existing.OwnerID != trade.OwnerID {
		s.mu.Unlock()
		return errors.ErrTradeNotFound
	}
	trade.UpdatedAt = time.Now().UTC()
	s.trades[trade.ID] = trade
	s.mu.Unlock()

	s.notifyTrades(trade.OwnerID)
	return nil
}

// DeleteTrade removes the trade record.
func (s *MemoryStore) DeleteTrade(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	trade, ok := s.trades[id]
	if !ok || trade.OwnerID != ownerID {
		s.mu.Unlock()
		return errors.ErrTradeNotFound
	}
	delete(s.trades, id)
	s.mu.Unlock()

	s.notifyTrades(ownerID)
	return nil
}

// WatchAccounts subscribes to the owner's account collection.
func (s *MemoryStore) WatchAccounts(ctx context.Context, ownerID string) (*Subscription[models.TradingAccount], error) {
	s.mu.RLock()
	snapshot := s.listAccountsLocked(ownerID)
	s.mu.RUnlock()

	sub := s.accountHub.subscribe(ownerID)
	sub.ch <- snapshot
	return sub, nil
}

// WatchTrades subscribes to the owner's trade collection.
func (s *MemoryStore) WatchTrades(ctx context.Context, ownerID string) (*Subscription[models.Trade], error) {
	s.mu.RLock()
	snapshot := s.listTradesLocked(ownerID, TradeFilter{})
	s.mu.RUnlock()

	sub := s.tradeHub.subscribe(ownerID)
	sub.ch <- snapshot
	return sub, nil
}

func (s *MemoryStore) notifyAccounts(ownerID string) {
	if !s.accountHub.hasSubscribers(ownerID) {
		return
	}
	s.mu.RLock()
	snapshot := s.listAccountsLocked(ownerID)
	s.mu.RUnlock()
	s.accountHub.broadcast(ownerID, snapshot)
}

func (s *MemoryStore) notifyTrades(ownerID string) {
	if !s.tradeHub.hasSubscribers(ownerID) {
		return
	}
	s.mu.RLock()
	snapshot := s.listTradesLocked(ownerID, TradeFilter{})
	s.mu.RUnlock()
	s.tradeHub.broadcast(ownerID, snapshot)
}
