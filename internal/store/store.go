// Package store provides the remote document store backing the journal.
//
// The store holds two collections, accounts and trades, keyed by
// store-assigned string ids and scoped by owner. Besides the usual CRUD
// operations it supports watching a collection: a watch delivers the full
// current result set as a snapshot on subscribe and again after every
// mutation. Consumers reconcile those snapshots into their local state; the
// snapshot feed, not the writer, is the canonical path by which new records
// become visible.
package store

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"trading-journal/internal/models"
)

// Collection names.
const (
	CollectionAccounts = "accounts"
	CollectionTrades   = "trades"
)

// AccountStore defines account persistence operations.
type AccountStore interface {
	// CreateAccount persists a new account, assigning its ID and
	// timestamps. The stored record is returned.
	CreateAccount(ctx context.Context, acct models.TradingAccount) (models.TradingAccount, error)
	GetAccount(ctx context.Context, ownerID, id string) (models.TradingAccount, error)
	// ListAccounts returns every account for the owner, unordered.
	ListAccounts(ctx context.Context, ownerID string) ([]models.TradingAccount, error)
	// PutAccount replaces the stored record. UpdatedAt is refreshed.
	PutAccount(ctx context.Context, acct models.TradingAccount) error
	DeleteAccount(ctx context.Context, ownerID, id string) error
}

// TradeStore defines trade persistence operations.
type TradeStore interface {
	// CreateTrade persists a new trade, assigning its ID and timestamps.
	CreateTrade(ctx context.Context, trade models.Trade) (models.Trade, error)
	GetTrade(ctx context.Context, ownerID, id string) (models.Trade, error)
	ListTrades(ctx context.Context, ownerID string, filter TradeFilter) ([]models.Trade, error)
	// PutTrade replaces the stored record. UpdatedAt is refreshed.
	PutTrade(ctx context.Context, trade models.Trade) error
	DeleteTrade(ctx context.Context, ownerID, id string) error
}

// Watcher defines realtime snapshot subscriptions.
//
// Each subscription receives the full current result set immediately and
// after every mutation of the collection. Intermediate snapshots may be
// coalesced for slow consumers; the latest snapshot is always delivered.
type Watcher interface {
	WatchAccounts(ctx context.Context, ownerID string) (*Subscription[models.TradingAccount], error)
	WatchTrades(ctx context.Context, ownerID string) (*Subscription[models.Trade], error)
}

// DocumentStore is the full remote store boundary consumed by the registry
// and the ledger.
type DocumentStore interface {
	AccountStore
	TradeStore
	Watcher
	Close() error
}

// TradeFilter narrows ListTrades results. Zero values mean no constraint.
type TradeFilter struct {
	AccountID string
	Symbol    string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
}

// NewDocumentID returns a new store-assigned document id. ULIDs are opaque
// to callers but lexically time-ordered, which keeps id tie-breaks stable
// across devices.
func NewDocumentID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
