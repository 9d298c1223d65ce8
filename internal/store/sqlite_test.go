package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-journal/internal/errors"
	"trading-journal/internal/models"
)

const testOwner = "owner-1"

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLiteAccountRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateAccount(ctx, models.TradingAccount{
		OwnerID:          testOwner,
		Name:             "Main",
		Type:             models.AccountLive,
		Balance:          25000,
		Currency:         "USD",
		Broker:           "IBKR",
		LinkedAccountIDs: []string{"follower-1"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := st.GetAccount(ctx, testOwner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.Balance, got.Balance)
	assert.Equal(t, []string{"follower-1"}, got.LinkedAccountIDs)

	got.Balance = 30000
	require.NoError(t, st.PutAccount(ctx, got))

	got, err = st.GetAccount(ctx, testOwner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 30000.0, got.Balance)

	accounts, err := st.ListAccounts(ctx, testOwner)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	require.NoError(t, st.DeleteAccount(ctx, testOwner, created.ID))
	_, err = st.GetAccount(ctx, testOwner, created.ID)
	require.ErrorIs(t, err, errors.ErrAccountNotFound)
}

func TestSQLiteAccountOwnerScoping(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateAccount(ctx, models.TradingAccount{OwnerID: testOwner, Name: "Main"})
	require.NoError(t, err)

	_, err = st.GetAccount(ctx, "other-owner", created.ID)
	require.ErrorIs(t, err, errors.ErrAccountNotFound)

	err = st.DeleteAccount(ctx, "other-owner", created.ID)
	require.ErrorIs(t, err, errors.ErrAccountNotFound)

	accounts, err := st.ListAccounts(ctx, "other-owner")
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestSQLitePutMissingRecord(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.PutAccount(ctx, models.TradingAccount{ID: "missing", OwnerID: testOwner})
	require.ErrorIs(t, err, errors.ErrAccountNotFound)

	err = st.PutTrade(ctx, models.Trade{ID: "missing", OwnerID: testOwner})
	require.ErrorIs(t, err, errors.ErrTradeNotFound)
}

func TestSQLiteTradeRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	exitTime := time.Date(2024, 6, 1, 16, 0, 0, 0, time.UTC)
	created, err := st.CreateTrade(ctx, models.Trade{
		OwnerID:    testOwner,
		AccountID:  "acct-1",
		Symbol:     "ES",
		Direction:  models.DirectionLong,
		EntryPrice: 5000,
		ExitPrice:  5010,
		Quantity:   2,
		PnL:        20,
		Result:     models.ResultWin,
		EntryTime:  time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC),
		ExitTime:   &exitTime,
		Tags:       []string{"breakout"},
		Classifications: map[string]string{
			"setup": "opening-range",
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := st.GetTrade(ctx, testOwner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Symbol, got.Symbol)
	assert.Equal(t, created.PnL, got.PnL)
	assert.Equal(t, []string{"breakout"}, got.Tags)
	assert.Equal(t, "opening-range", got.Classifications["setup"])
	require.NotNil(t, got.ExitTime)
	assert.True(t, got.ExitTime.Equal(exitTime))

	require.NoError(t, st.DeleteTrade(ctx, testOwner, created.ID))
	err = st.DeleteTrade(ctx, testOwner, created.ID)
	require.ErrorIs(t, err, errors.ErrTradeNotFound)
}

func TestSQLiteListTradesFilter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	seed := []models.Trade{
		{OwnerID: testOwner, AccountID: "a1", Symbol: "ES", EntryTime: base},
		{OwnerID: testOwner, AccountID: "a1", Symbol: "NQ", EntryTime: base.Add(time.Hour)},
		{OwnerID: testOwner, AccountID: "a2", Symbol: "ES", EntryTime: base.Add(2 * time.Hour)},
		{OwnerID: "other", AccountID: "a1", Symbol: "ES", EntryTime: base},
	}
	for _, trade := range seed {
		_, err := st.CreateTrade(ctx, trade)
		require.NoError(t, err)
	}

	all, err := st.ListTrades(ctx, testOwner, TradeFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest entry first.
	assert.Equal(t, "a2", all[0].AccountID)

	byAccount, err := st.ListTrades(ctx, testOwner, TradeFilter{AccountID: "a1"})
	require.NoError(t, err)
	assert.Len(t, byAccount, 2)

	bySymbol, err := st.ListTrades(ctx, testOwner, TradeFilter{AccountID: "a1", Symbol: "ES"})
	require.NoError(t, err)
	assert.Len(t, bySymbol, 1)

	byWindow, err := st.ListTrades(ctx, testOwner, TradeFilter{
		StartTime: base.Add(30 * time.Minute),
		EndTime:   base.Add(90 * time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, byWindow, 1)
	assert.Equal(t, "NQ", byWindow[0].Symbol)

	limited, err := st.ListTrades(ctx, testOwner, TradeFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLiteWatchDeliversSnapshots(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sub, err := st.WatchAccounts(ctx, testOwner)
	require.NoError(t, err)
	defer sub.Close()

	// The current snapshot arrives immediately, even when empty.
	initial := <-sub.Snapshots()
	assert.Empty(t, initial)

	created, err := st.CreateAccount(ctx, models.TradingAccount{OwnerID: testOwner, Name: "Main"})
	require.NoError(t, err)

	next := <-sub.Snapshots()
	require.Len(t, next, 1)
	assert.Equal(t, created.ID, next[0].ID)

	require.NoError(t, st.DeleteAccount(ctx, testOwner, created.ID))
	assert.Empty(t, <-sub.Snapshots())
}

func TestSQLiteWatchScopedToOwner(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sub, err := st.WatchTrades(ctx, testOwner)
	require.NoError(t, err)
	defer sub.Close()
	<-sub.Snapshots()

	_, err = st.CreateTrade(ctx, models.Trade{OwnerID: "other", AccountID: "a1", Symbol: "ES"})
	require.NoError(t, err)

	select {
	case snapshot := <-sub.Snapshots():
		t.Fatalf("expected no delivery for another owner, got %d trades", len(snapshot))
	case <-time.After(50 * time.Millisecond):
	}
}
