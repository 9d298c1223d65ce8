package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-journal/internal/models"
)

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	hub := newSnapshotHub[models.Trade]()
	sub := hub.subscribe(testOwner)

	sub.Close()
	sub.Close()

	_, open := <-sub.Snapshots()
	assert.False(t, open)
	assert.False(t, hub.hasSubscribers(testOwner))
}

func TestHubBroadcastReachesAllSubscribers(t *testing.T) {
	hub := newSnapshotHub[models.Trade]()
	a := hub.subscribe(testOwner)
	b := hub.subscribe(testOwner)
	defer a.Close()
	defer b.Close()

	assert.NotEqual(t, a.ID(), b.ID())

	snapshot := []models.Trade{{ID: "t1"}}
	hub.broadcast(testOwner, snapshot)

	assert.Len(t, <-a.Snapshots(), 1)
	assert.Len(t, <-b.Snapshots(), 1)
}

func TestHubCoalescesForSlowSubscribers(t *testing.T) {
	hub := newSnapshotHub[models.Trade]()
	sub := hub.subscribe(testOwner)
	defer sub.Close()

	// Flood far past the buffer without draining. Sends must not block,
	// and the newest snapshot must survive the coalescing.
	var last []models.Trade
	for i := 0; i < 100; i++ {
		last = []models.Trade{{ID: fmt.Sprintf("t%d", i)}}
		hub.broadcast(testOwner, last)
	}

	var newest []models.Trade
	for {
		select {
		case snapshot := <-sub.Snapshots():
			newest = snapshot
			continue
		default:
		}
		break
	}
	require.NotNil(t, newest)
	assert.Equal(t, last[0].ID, newest[0].ID)
}

func TestHubClosedSubscriberStopsReceiving(t *testing.T) {
	hub := newSnapshotHub[models.Trade]()
	closed := hub.subscribe(testOwner)
	live := hub.subscribe(testOwner)
	defer live.Close()

	closed.Close()
	hub.broadcast(testOwner, []models.Trade{{ID: "t1"}})

	assert.Len(t, <-live.Snapshots(), 1)
}

func TestMemoryStoreMatchesWatchSemantics(t *testing.T) {
	st := NewMemoryStore()
	defer st.Close()
	ctx := context.Background()

	sub, err := st.WatchAccounts(ctx, testOwner)
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, <-sub.Snapshots())

	created, err := st.CreateAccount(ctx, models.TradingAccount{OwnerID: testOwner, Name: "Main"})
	require.NoError(t, err)

	next := <-sub.Snapshots()
	require.Len(t, next, 1)
	assert.Equal(t, created.ID, next[0].ID)
}

func TestNewDocumentIDIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewDocumentID()
		require.Len(t, id, 26)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
