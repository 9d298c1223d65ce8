package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trading-journal/internal/errors"
	"trading-journal/internal/models"
)

// SQLiteStore implements DocumentStore using SQLite. Documents are stored
// as JSON bodies with the fields used for filtering lifted into indexed
// columns.
type SQLiteStore struct {
	db         *sql.DB
	accountHub *snapshotHub[models.TradingAccount]
	tradeHub   *snapshotHub[models.Trade]
}

// NewSQLiteStore creates a new SQLite-backed document store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:         db,
		accountHub: newSnapshotHub[models.TradingAccount](),
		tradeHub:   newSnapshotHub[models.Trade](),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Accounts collection
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		body TEXT NOT NULL
	);

	-- Trades collection
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		entry_time DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		body TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_owner ON accounts(owner_id);
	CREATE INDEX IF NOT EXISTS idx_trades_owner ON trades(owner_id);
	CREATE INDEX IF NOT EXISTS idx_trades_account ON trades(account_id);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_entry_time ON trades(entry_time);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection and every open subscription.
func (s *SQLiteStore) Close() error {
	s.accountHub.closeAll()
	s.tradeHub.closeAll()
	return s.db.Close()
}

// ============================================================================
// Accounts
// ============================================================================

// CreateAccount persists a new account, assigning its id and timestamps.
func (s *SQLiteStore) CreateAccount(ctx context.Context, acct models.TradingAccount) (models.TradingAccount, error) {
	now := time.Now().UTC()
	acct.ID = NewDocumentID()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	body, err := json.Marshal(acct)
	if err != nil {
		return models.TradingAccount{}, errors.NewStoreError(CollectionAccounts, "create", "", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, owner_id, name, status, created_at, updated_at, body)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, acct.ID, acct.OwnerID, acct.Name, string(acct.EffectiveStatus()), acct.CreatedAt, acct.UpdatedAt, string(body))
	if err != nil {
		return models.TradingAccount{}, errors.NewStoreError(CollectionAccounts, "create", acct.ID, err)
	}

	s.notifyAccounts(ctx, acct.OwnerID)
	return acct, nil
}

// GetAccount retrieves a single account.
func (s *SQLiteStore) GetAccount(ctx context.Context, ownerID, id string) (models.TradingAccount, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM accounts WHERE owner_id = ? AND id = ?
	`, ownerID, id).Scan(&body)
	if err == sql.ErrNoRows {
		return models.TradingAccount{}, errors.ErrAccountNotFound
	}
	if err != nil {
		return models.TradingAccount{}, errors.NewStoreError(CollectionAccounts, "get", id, err)
	}

	var acct models.TradingAccount
	if err := json.Unmarshal([]byte(body), &acct); err != nil {
		return models.TradingAccount{}, errors.NewStoreError(CollectionAccounts, "get", id, err)
	}
	return acct, nil
}

// ListAccounts returns every account for the owner.
func (s *SQLiteStore) ListAccounts(ctx context.Context, ownerID string) ([]models.TradingAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM accounts WHERE owner_id = ?
	`, ownerID)
	if err != nil {
		return nil, errors.NewStoreError(CollectionAccounts, "list", "", err)
	}
	defer rows.Close()

	var accounts []models.TradingAccount
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, errors.NewStoreError(CollectionAccounts, "list", "", err)
		}
		var acct models.TradingAccount
		if err := json.Unmarshal([]byte(body), &acct); err != nil {
			return nil, errors.NewStoreError(CollectionAccounts, "list", "", err)
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError(CollectionAccounts, "list", "", err)
	}
	return accounts, nil
}

// PutAccount replaces the stored record, refreshing UpdatedAt.
func (s *SQLiteStore) PutAccount(ctx context.Context, acct models.TradingAccount) error {
	acct.UpdatedAt = time.Now().UTC()

	body, err := json.Marshal(acct)
	if err != nil {
		return errors.NewStoreError(CollectionAccounts, "put", acct.ID, err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET name = ?, status = ?, updated_at = ?, body = ?
		WHERE owner_id = ? AND id = ?
	`, acct.Name, string(acct.EffectiveStatus()), acct.UpdatedAt, string(body), acct.OwnerID, acct.ID)
	if err != nil {
		return errors.NewStoreError(CollectionAccounts, "put", acct.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.ErrAccountNotFound
	}

	s.notifyAccounts(ctx, acct.OwnerID)
	return nil
}

// DeleteAccount removes the account record.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM accounts WHERE owner_id = ? AND id = ?
	`, ownerID, id)
	if err != nil {
		return errors.NewStoreError(CollectionAccounts, "delete", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.ErrAccountNotFound
	}

	s.notifyAccounts(ctx, ownerID)
	return nil
}

// ============================================================================
// Trades
// ============================================================================

// CreateTrade persists a new trade, assigning its id and timestamps.
func (s *SQLiteStore) CreateTrade(ctx context.Context, trade models.Trade) (models.Trade, error) {
	now := time.Now().UTC()
	trade.ID = NewDocumentID()
	trade.CreatedAt = now
	trade.UpdatedAt = now

	body, err := json.Marshal(trade)
	if err != nil {
		return models.Trade{}, errors.NewStoreError(CollectionTrades, "create", "", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trades (id, owner_id, account_id, symbol, entry_time, created_at, updated_at, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, trade.ID, trade.OwnerID, trade.AccountID, trade.Symbol, trade.EntryTime, trade.CreatedAt, trade.UpdatedAt, string(body))
	if err != nil {
		return models.Trade{}, errors.NewStoreError(CollectionTrades, "create", trade.ID, err)
	}

	s.notifyTrades(ctx, trade.OwnerID)
	return trade, nil
}

// GetTrade retrieves a single trade.
func (s *SQLiteStore) GetTrade(ctx context.Context, ownerID, id string) (models.Trade, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM trades WHERE owner_id = ? AND id = ?
	`, ownerID, id).Scan(&body)
	if err == sql.ErrNoRows {
		return models.Trade{}, errors.ErrTradeNotFound
	}
	if err != nil {
		return models.Trade{}, errors.NewStoreError(CollectionTrades, "get", id, err)
	}

	var trade models.Trade
	if err := json.Unmarshal([]byte(body), &trade); err != nil {
		return models.Trade{}, errors.NewStoreError(CollectionTrades, "get", id, err)
	}
	return trade, nil
}

// ListTrades retrieves trades matching the filter.
func (s *SQLiteStore) ListTrades(ctx context.Context, ownerID string, filter TradeFilter) ([]models.Trade, error) {
	query := "SELECT body FROM trades WHERE owner_id = ?"
	args := []interface{}{ownerID}

	if filter.AccountID != "" {
		query += " AND account_id = ?"
		args = append(args, filter.AccountID)
	}
	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.StartTime.IsZero() {
		query += " AND entry_time >= ?"
		args = append(args, filter.StartTime)
	}
	if !filter.EndTime.IsZero() {
		query += " AND entry_time <= ?"
		args = append(args, filter.EndTime)
	}
	query += " ORDER BY entry_time DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewStoreError(CollectionTrades, "list", "", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, errors.NewStoreError(CollectionTrades, "list", "", err)
		}
		var trade models.Trade
		if err := json.Unmarshal([]byte(body), &trade); err != nil {
			return nil, errors.NewStoreError(CollectionTrades, "list", "", err)
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError(CollectionTrades, "list", "", err)
	}
	return trades, nil
}

// PutTrade replaces the stored record, refreshing UpdatedAt.
func (s *SQLiteStore) PutTrade(ctx context.Context, trade models.Trade) error {
	trade.UpdatedAt = time.Now().UTC()

	body, err := json.Marshal(trade)
	if err != nil {
		return errors.NewStoreError(CollectionTrades, "put", trade.ID, err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE trades SET account_id = ?, symbol = ?, entry_time = ?, updated_at = ?, body = ?
		WHERE owner_id = ? AND id = ?
	`, trade.AccountID, trade.Symbol, trade.EntryTime, trade.UpdatedAt, string(body), trade.OwnerID, trade.ID)
	if err != nil {
		return errors.NewStoreError(CollectionTrades, "put", trade.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.ErrTradeNotFound
	}

	s.notifyTrades(ctx, trade.OwnerID)
	return nil
}

// DeleteTrade removes the trade record.
func (s *SQLiteStore) DeleteTrade(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM trades WHERE owner_id = ? AND id = ?
	`, ownerID, id)
	if err != nil {
		return errors.NewStoreError(CollectionTrades, "delete", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.ErrTradeNotFound
	}

	s.notifyTrades(ctx, ownerID)
	return nil
}

// ============================================================================
// Watch
// ============================================================================

// WatchAccounts subscribes to the owner's account collection. The current
// snapshot is delivered immediately, then again after every mutation.
func (s *SQLiteStore) WatchAccounts(ctx context.Context, ownerID string) (*Subscription[models.TradingAccount], error) {
	snapshot, err := s.ListAccounts(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	sub := s.accountHub.subscribe(ownerID)
	sub.ch <- snapshot
	return sub, nil
}

// WatchTrades subscribes to the owner's trade collection. The current
// snapshot is delivered immediately, then again after every mutation.
func (s *SQLiteStore) WatchTrades(ctx context.Context, ownerID string) (*Subscription[models.Trade], error) {
	snapshot, err := s.ListTrades(ctx, ownerID, TradeFilter{})
	if err != nil {
		return nil, err
	}
	sub := s.tradeHub.subscribe(ownerID)
	sub.ch <- snapshot
	return sub, nil
}

// notifyAccounts re-reads the owner's account collection and broadcasts it.
// A failed re-read is skipped: the next mutation delivers a fresh snapshot,
// and subscribers keep their last known state until then.
func (s *SQLiteStore) notifyAccounts(ctx context.Context, ownerID string) {
	if !s.accountHub.hasSubscribers(ownerID) {
		return
	}
	snapshot, err := s.ListAccounts(ctx, ownerID)
	if err != nil {
		return
	}
	s.accountHub.broadcast(ownerID, snapshot)
}

// notifyTrades re-reads the owner's trade collection and broadcasts it.
func (s *SQLiteStore) notifyTrades(ctx context.Context, ownerID string) {
	if !s.tradeHub.hasSubscribers(ownerID) {
		return
	}
	snapshot, err := s.ListTrades(ctx, ownerID, TradeFilter{})
	if err != nil {
		return
	}
	s.tradeHub.broadcast(ownerID, snapshot)
}
