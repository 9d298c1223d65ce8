package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-journal/internal/errors"
	"trading-journal/internal/models"
	"trading-journal/internal/registry"
	"trading-journal/internal/store"
)

const testOwner = "owner-1"

type testEnv struct {
	store    *store.MemoryStore
	registry *registry.Registry
	ledger   *Ledger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := store.NewMemoryStore()
	t.Cleanup(func() { st.Close() })

	reg := registry.New(st, testOwner, zerolog.Nop())
	return &testEnv{
		store:    st,
		registry: reg,
		ledger:   New(st, reg, testOwner, zerolog.Nop()),
	}
}

func (e *testEnv) addAccount(t *testing.T, name string) models.TradingAccount {
	t.Helper()
	ctx := context.Background()
	created, err := e.registry.AddAccount(ctx, models.TradingAccount{Name: name})
	require.NoError(t, err)
	require.NoError(t, e.registry.Refresh(ctx))
	return created
}

// addGroup creates a leader with the given number of followers.
func (e *testEnv) addGroup(t *testing.T, followerCount int) (models.TradingAccount, []models.TradingAccount) {
	t.Helper()
	ctx := context.Background()

	leader := e.addAccount(t, "Leader")
	followers := make([]models.TradingAccount, followerCount)
	followerIDs := make([]string, followerCount)
	for i := range followers {
		followers[i] = e.addAccount(t, fmt.Sprintf("Follower %d", i+1))
		followerIDs[i] = followers[i].ID
	}

	require.NoError(t, e.registry.UpdateAccount(ctx, leader.ID, registry.AccountPatch{
		LinkedAccountIDs: &followerIDs,
	}))
	return leader, followers
}

func (e *testEnv) storeTrades(t *testing.T, filter store.TradeFilter) []models.Trade {
	t.Helper()
	trades, err := e.store.ListTrades(context.Background(), testOwner, filter)
	require.NoError(t, err)
	return trades
}

func closedTrade(accountID string) models.Trade {
	return models.Trade{
		AccountID:  accountID,
		Symbol:     "ES",
		Direction:  models.DirectionLong,
		EntryPrice: 5000,
		ExitPrice:  5010,
		Quantity:   2,
		EntryTime:  time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC),
	}
}

func TestAddTradeReplicatesToFollowers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	leader, followers := env.addGroup(t, 2)

	primary, err := env.ledger.AddTrade(ctx, closedTrade(leader.ID))
	require.NoError(t, err)
	assert.Equal(t, leader.ID, primary.AccountID)
	assert.NotEmpty(t, primary.ID)

	all := env.storeTrades(t, store.TradeFilter{})
	require.Len(t, all, 3)

	byAccount := make(map[string]models.Trade, len(all))
	ids := make(map[string]bool, len(all))
	for _, trade := range all {
		byAccount[trade.AccountID] = trade
		ids[trade.ID] = true

		assert.Equal(t, primary.Symbol, trade.Symbol)
		assert.Equal(t, primary.PnL, trade.PnL)
		assert.Equal(t, primary.Result, trade.Result)
		assert.True(t, trade.EntryTime.Equal(primary.EntryTime))
	}

	// Each record has its own identity under its own account.
	assert.Len(t, ids, 3)
	for _, follower := range followers {
		_, ok := byAccount[follower.ID]
		assert.True(t, ok, "follower %s missing its replica", follower.ID)
	}
}

func TestAddTradeToNonLeaderDoesNotReplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, followers := env.addGroup(t, 1)

	_, err := env.ledger.AddTrade(ctx, closedTrade(followers[0].ID))
	require.NoError(t, err)

	assert.Len(t, env.storeTrades(t, store.TradeFilter{}), 1)
}

func TestAddTradePartialReplication(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	leader, followers := env.addGroup(t, 2)
	env.store.FailTradeCreateFor = map[string]error{
		followers[0].ID: fmt.Errorf("write quota exceeded"),
	}

	// A failed replica never fails the primary write.
	primary, err := env.ledger.AddTrade(ctx, closedTrade(leader.ID))
	require.NoError(t, err)
	assert.NotEmpty(t, primary.ID)

	all := env.storeTrades(t, store.TradeFilter{})
	require.Len(t, all, 2)
	accounts := make(map[string]bool)
	for _, trade := range all {
		accounts[trade.AccountID] = true
	}
	assert.True(t, accounts[leader.ID])
	assert.True(t, accounts[followers[1].ID])
	assert.False(t, accounts[followers[0].ID])
}

func TestAddTradePrimaryFailurePropagates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	leader, _ := env.addGroup(t, 1)
	env.store.FailTradeCreateFor = map[string]error{
		leader.ID: fmt.Errorf("unavailable"),
	}

	_, err := env.ledger.AddTrade(ctx, closedTrade(leader.ID))
	require.Error(t, err)
	assert.Empty(t, env.storeTrades(t, store.TradeFilter{}))
}

func TestAddTradeValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ledger.AddTrade(ctx, models.Trade{Symbol: "ES"})
	require.Error(t, err)

	_, err = env.ledger.AddTrade(ctx, models.Trade{AccountID: "acct"})
	require.Error(t, err)
}

func TestAddTradeDerivesPnLAndResult(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acct := env.addAccount(t, "Solo")

	draft := closedTrade(acct.ID)
	created, err := env.ledger.AddTrade(ctx, draft)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, created.PnL, 1e-9)
	assert.Equal(t, models.ResultWin, created.Result)

	short := closedTrade(acct.ID)
	short.Direction = models.DirectionShort
	created, err = env.ledger.AddTrade(ctx, short)
	require.NoError(t, err)
	assert.InDelta(t, -20.0, created.PnL, 1e-9)
	assert.Equal(t, models.ResultLoss, created.Result)
}

func TestAddTradeNotVisibleUntilFeedDelivers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acct := env.addAccount(t, "Solo")

	_, err := env.ledger.AddTrade(ctx, closedTrade(acct.ID))
	require.NoError(t, err)
	assert.Empty(t, env.ledger.Trades())

	require.NoError(t, env.ledger.Refresh(ctx))
	assert.Len(t, env.ledger.Trades(), 1)
}

func TestCascadeDeleteRemovesReplicas(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	leader, _ := env.addGroup(t, 2)

	primary, err := env.ledger.AddTrade(ctx, closedTrade(leader.ID))
	require.NoError(t, err)
	require.Len(t, env.storeTrades(t, store.TradeFilter{}), 3)

	require.NoError(t, env.ledger.DeleteTrade(ctx, primary.ID, true))
	assert.Empty(t, env.storeTrades(t, store.TradeFilter{}))
}

func TestCascadeDeleteSparesDistantTrades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	leader, followers := env.addGroup(t, 1)

	primary, err := env.ledger.AddTrade(ctx, closedTrade(leader.ID))
	require.NoError(t, err)

	// Same symbol on the follower, but entered five minutes later: a
	// genuine separate trade, not a replica.
	separate := closedTrade(followers[0].ID)
	separate.EntryTime = primary.EntryTime.Add(5 * time.Minute)
	unrelated, err := env.ledger.AddTrade(ctx, separate)
	require.NoError(t, err)

	// Different symbol inside the window also survives.
	otherSymbol := closedTrade(followers[0].ID)
	otherSymbol.Symbol = "NQ"
	other, err := env.ledger.AddTrade(ctx, otherSymbol)
	require.NoError(t, err)

	require.NoError(t, env.ledger.DeleteTrade(ctx, primary.ID, true))

	remaining := env.storeTrades(t, store.TradeFilter{})
	require.Len(t, remaining, 2)
	ids := map[string]bool{remaining[0].ID: true, remaining[1].ID: true}
	assert.True(t, ids[unrelated.ID])
	assert.True(t, ids[other.ID])
}

func TestCascadeDeleteFromFollowerReachesWholeGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	leader, followers := env.addGroup(t, 2)

	primary, err := env.ledger.AddTrade(ctx, closedTrade(leader.ID))
	require.NoError(t, err)
	require.Len(t, env.storeTrades(t, store.TradeFilter{}), 3)

	// Find the replica that landed on the first follower and delete it;
	// the cascade must reach the leader's record and the sibling's.
	replicas := env.storeTrades(t, store.TradeFilter{AccountID: followers[0].ID})
	require.Len(t, replicas, 1)
	require.NotEqual(t, primary.ID, replicas[0].ID)

	require.NoError(t, env.ledger.DeleteTrade(ctx, replicas[0].ID, true))
	assert.Empty(t, env.storeTrades(t, store.TradeFilter{}))
}

func TestDeleteTradeWithoutCascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	leader, _ := env.addGroup(t, 2)

	primary, err := env.ledger.AddTrade(ctx, closedTrade(leader.ID))
	require.NoError(t, err)

	require.NoError(t, env.ledger.DeleteTrade(ctx, primary.ID, false))
	assert.Len(t, env.storeTrades(t, store.TradeFilter{}), 2)
}

func TestDeleteTradeUnknownID(t *testing.T) {
	env := newTestEnv(t)
	err := env.ledger.DeleteTrade(context.Background(), "missing", true)
	require.ErrorIs(t, err, errors.ErrTradeNotFound)
}

func TestUpdateTradeMergesLocally(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acct := env.addAccount(t, "Solo")
	created, err := env.ledger.AddTrade(ctx, closedTrade(acct.ID))
	require.NoError(t, err)
	require.NoError(t, env.ledger.Refresh(ctx))

	notes := "scaled out too early"
	require.NoError(t, env.ledger.UpdateTrade(ctx, created.ID, TradePatch{Notes: &notes}))

	trades := env.ledger.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, notes, trades[0].Notes)

	stored, err := env.store.GetTrade(ctx, testOwner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, notes, stored.Notes)
}

func TestToggleMarkForReview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acct := env.addAccount(t, "Solo")
	created, err := env.ledger.AddTrade(ctx, closedTrade(acct.ID))
	require.NoError(t, err)
	require.NoError(t, env.ledger.Refresh(ctx))

	marked, err := env.ledger.ToggleMarkForReview(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, marked)

	// Simulate a completed review, then unmark: the reviewed-at stamp
	// must be cleared with the flag.
	reviewed := time.Now().UTC()
	stored, err := env.store.GetTrade(ctx, testOwner, created.ID)
	require.NoError(t, err)
	stored.ReviewedAt = &reviewed
	require.NoError(t, env.store.PutTrade(ctx, stored))
	require.NoError(t, env.ledger.Refresh(ctx))

	marked, err = env.ledger.ToggleMarkForReview(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, marked)

	stored, err = env.store.GetTrade(ctx, testOwner, created.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ReviewedAt)
}

func TestApplySnapshotInstallsWholesale(t *testing.T) {
	env := newTestEnv(t)
	acct := env.addAccount(t, "Solo")

	env.ledger.ApplySnapshot([]models.Trade{
		{ID: "t1", AccountID: acct.ID},
		{ID: "t2", AccountID: acct.ID},
	})
	assert.Len(t, env.ledger.Trades(), 2)

	// The next snapshot replaces, never merges.
	env.ledger.ApplySnapshot([]models.Trade{{ID: "t2", AccountID: acct.ID}})
	trades := env.ledger.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "t2", trades[0].ID)
}

func TestApplySnapshotDropsTradesOfDeletedAccounts(t *testing.T) {
	env := newTestEnv(t)
	acct := env.addAccount(t, "Solo")

	deleted := models.AccountDeleted
	require.NoError(t, env.registry.UpdateAccount(context.Background(), acct.ID, registry.AccountPatch{
		Status: &deleted,
	}))

	env.ledger.ApplySnapshot([]models.Trade{
		{ID: "t1", AccountID: acct.ID},
		{ID: "t2", AccountID: "never-existed"},
	})
	assert.Empty(t, env.ledger.Trades())
}

func TestApplySnapshotSkipsFilterWhenAccountsUnloaded(t *testing.T) {
	env := newTestEnv(t)

	// No accounts loaded yet: filtering against the empty set would wipe
	// every trade, so the filter is bypassed.
	env.ledger.ApplySnapshot([]models.Trade{
		{ID: "t1", AccountID: "unknown-a"},
		{ID: "t2", AccountID: "unknown-b"},
	})
	assert.Len(t, env.ledger.Trades(), 2)
}

func TestLedgerQueries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acct := env.addAccount(t, "Solo")
	other := env.addAccount(t, "Other")

	closed := closedTrade(acct.ID)
	_, err := env.ledger.AddTrade(ctx, closed)
	require.NoError(t, err)

	open := models.Trade{
		AccountID:  other.ID,
		Symbol:     "nqh5",
		Direction:  models.DirectionShort,
		EntryPrice: 18000,
		Quantity:   1,
		EntryTime:  closed.EntryTime.Add(48 * time.Hour),
	}
	_, err = env.ledger.AddTrade(ctx, open)
	require.NoError(t, err)
	require.NoError(t, env.ledger.Refresh(ctx))

	assert.Len(t, env.ledger.TradesByAccount(acct.ID), 1)
	assert.Len(t, env.ledger.OpenTrades(), 1)
	assert.Len(t, env.ledger.ClosedTrades(), 1)
	assert.Len(t, env.ledger.TradesBySymbol("NQ"), 1)
	assert.Len(t, env.ledger.TradesBySymbol("es"), 1)
	assert.Len(t, env.ledger.RecentTrades(1), 1)
	assert.Len(t, env.ledger.RecentTrades(10), 2)

	inRange := env.ledger.TradesByDateRange(closed.EntryTime.Add(-time.Hour), closed.EntryTime.Add(time.Hour))
	require.Len(t, inRange, 1)
	assert.Equal(t, "ES", inRange[0].Symbol)
}

func TestStartAppliesFeedSnapshots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acct := env.addAccount(t, "Solo")
	require.NoError(t, env.registry.Refresh(ctx))

	require.NoError(t, env.ledger.Start(ctx))
	defer env.ledger.Stop()

	_, err := env.ledger.AddTrade(ctx, closedTrade(acct.ID))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(env.ledger.Trades()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartDisposesPreviousSubscription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.ledger.Start(ctx))
	require.NoError(t, env.ledger.Start(ctx))
	env.ledger.Stop()

	// Stop after a double Start must not hang or panic; the first
	// subscription was disposed when the second attached.
}
