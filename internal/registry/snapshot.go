package registry

import (
	"sort"

	"trading-journal/internal/models"
)

// Snapshot is an immutable view of the account set at a point in time.
// Resolvers receive it by value; the registry produces a fresh snapshot
// whenever its state changes, so holders never observe mutation.
type Snapshot struct {
	accounts []models.TradingAccount // creation order
	byID     map[string]int
}

// NewSnapshot builds a snapshot from the given accounts, sorted into
// creation order.
func NewSnapshot(accounts []models.TradingAccount) Snapshot {
	sorted := make([]models.TradingAccount, len(accounts))
	copy(sorted, accounts)
	SortCreationOrder(sorted)

	byID := make(map[string]int, len(sorted))
	for i, acct := range sorted {
		byID[acct.ID] = i
	}
	return Snapshot{accounts: sorted, byID: byID}
}

// SortCreationOrder sorts accounts into the deterministic creation order
// used everywhere selection stability matters: ascending CreatedAt with
// missing timestamps last, tie-broken by case-sensitive name, then by id.
// The ordering is total, so it is stable across devices even with clock
// skew or records written before timestamps existed.
func SortCreationOrder(accounts []models.TradingAccount) {
	sort.SliceStable(accounts, func(i, j int) bool {
		a, b := accounts[i], accounts[j]
		switch {
		case a.CreatedAt.IsZero() && !b.CreatedAt.IsZero():
			return false
		case !a.CreatedAt.IsZero() && b.CreatedAt.IsZero():
			return true
		case !a.CreatedAt.Equal(b.CreatedAt):
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

// Accounts returns the accounts in creation order. Callers must not modify
// the returned slice.
func (s Snapshot) Accounts() []models.TradingAccount {
	return s.accounts
}

// Len returns the number of accounts in the snapshot.
func (s Snapshot) Len() int {
	return len(s.accounts)
}

// Get looks up an account by id.
func (s Snapshot) Get(id string) (models.TradingAccount, bool) {
	i, ok := s.byID[id]
	if !ok {
		return models.TradingAccount{}, false
	}
	return s.accounts[i], true
}

// LeaderOf returns the account that lists id as a follower, if any.
// Leadership is exclusive, so at most one account can match.
func (s Snapshot) LeaderOf(id string) (models.TradingAccount, bool) {
	for _, acct := range s.accounts {
		if acct.ID != id && acct.HasFollower(id) {
			return acct, true
		}
	}
	return models.TradingAccount{}, false
}

// Leaders returns every account with a non-empty follower set, in creation
// order.
func (s Snapshot) Leaders() []models.TradingAccount {
	var leaders []models.TradingAccount
	for _, acct := range s.accounts {
		if acct.IsLeader() {
			leaders = append(leaders, acct)
		}
	}
	return leaders
}
