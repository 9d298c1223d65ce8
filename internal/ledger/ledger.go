// Package ledger owns trade records: persistence, replication across
// linked account groups, cascade deletion, and reconciliation of the
// realtime snapshot feed into local state.
package ledger

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trading-journal/internal/errors"
	"trading-journal/internal/models"
	"trading-journal/internal/registry"
	"trading-journal/internal/retention"
	"trading-journal/internal/store"
)

// TradePatch carries a partial trade update. Nil fields are left
// untouched.
type TradePatch struct {
	Symbol               *string
	Direction            *models.TradeDirection
	EntryPrice           *float64
	ExitPrice            *float64
	Quantity             *float64
	RiskAmount           *float64
	RiskRewardRatio      *float64
	Result               *models.TradeResult
	PnL                  *float64
	EntryTime            *time.Time
	ExitTime             **time.Time
	Mood                 *models.Mood
	Tags                 *[]string
	Notes                *string
	Classifications      *map[string]string
	ReviewNote           *string
	ReviewTags           *[]string
	ExcludeFromAnalytics *bool
}

func (p TradePatch) apply(trade *models.Trade) {
	if p.Symbol != nil {
		trade.Symbol = *p.Symbol
	}
	if p.Direction != nil {
		trade.Direction = *p.Direction
	}
	if p.EntryPrice != nil {
		trade.EntryPrice = *p.EntryPrice
	}
	if p.ExitPrice != nil {
		trade.ExitPrice = *p.ExitPrice
	}
	if p.Quantity != nil {
		trade.Quantity = *p.Quantity
	}
	if p.RiskAmount != nil {
		trade.RiskAmount = *p.RiskAmount
	}
	if p.RiskRewardRatio != nil {
		trade.RiskRewardRatio = *p.RiskRewardRatio
	}
	if p.Result != nil {
		trade.Result = *p.Result
	}
	if p.PnL != nil {
		trade.PnL = *p.PnL
	}
	if p.EntryTime != nil {
		trade.EntryTime = *p.EntryTime
	}
	if p.ExitTime != nil {
		trade.ExitTime = *p.ExitTime
	}
	if p.Mood != nil {
		trade.Mood = *p.Mood
	}
	if p.Tags != nil {
		trade.Tags = *p.Tags
	}
	if p.Notes != nil {
		trade.Notes = *p.Notes
	}
	if p.Classifications != nil {
		trade.Classifications = *p.Classifications
	}
	if p.ReviewNote != nil {
		trade.ReviewNote = *p.ReviewNote
	}
	if p.ReviewTags != nil {
		trade.ReviewTags = *p.ReviewTags
	}
	if p.ExcludeFromAnalytics != nil {
		trade.ExcludeFromAnalytics = *p.ExcludeFromAnalytics
	}
}

// Ledger holds the trade list for one owner, reconciled from the realtime
// snapshot feed.
type Ledger struct {
	store    store.DocumentStore
	registry *registry.Registry
	ownerID  string
	logger   zerolog.Logger

	mu     sync.RWMutex
	trades []models.Trade

	subMu sync.Mutex
	sub   *store.Subscription[models.Trade]
	done  chan struct{}
}

// New creates a ledger over the given store and account registry.
func New(st store.DocumentStore, reg *registry.Registry, ownerID string, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:    st,
		registry: reg,
		ownerID:  ownerID,
		logger:   logger.With().Str("component", "ledger").Logger(),
	}
}

// Start subscribes to the trade snapshot feed and reconciles snapshots as
// they arrive. Any previous subscription is disposed of first so listeners
// do not accumulate across re-initialization.
func (l *Ledger) Start(ctx context.Context) error {
	l.subMu.Lock()
	defer l.subMu.Unlock()

	if l.sub != nil {
		l.sub.Close()
		<-l.done
	}

	sub, err := l.store.WatchTrades(ctx, l.ownerID)
	if err != nil {
		return errors.Wrap(err, "watching trades")
	}
	l.sub = sub
	l.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		for snapshot := range sub.Snapshots() {
			l.ApplySnapshot(snapshot)
		}
	}(l.done)

	return nil
}

// Stop disposes of the snapshot subscription.
func (l *Ledger) Stop() {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	if l.sub != nil {
		l.sub.Close()
		<-l.done
		l.sub = nil
	}
}

// Refresh synchronously loads the current trade list from the store and
// reconciles it. Used where a caller cannot wait for the feed, e.g.
// one-shot CLI commands.
func (l *Ledger) Refresh(ctx context.Context) error {
	trades, err := l.store.ListTrades(ctx, l.ownerID, store.TradeFilter{})
	if err != nil {
		return errors.Wrap(err, "listing trades")
	}
	l.ApplySnapshot(trades)
	return nil
}

// ApplySnapshot reconciles a full trade snapshot from the realtime feed
// into local state. The feed is authoritative: the incoming list replaces
// the local one wholesale, after dropping trades whose account no longer
// resolves to a non-deleted account.
//
// When the account set has not loaded yet the account filter is skipped
// entirely: an empty valid-account set must never be read as "no trades
// are valid".
func (l *Ledger) ApplySnapshot(trades []models.Trade) {
	snap := l.registry.Snapshot()

	var next []models.Trade
	if snap.Len() == 0 {
		next = make([]models.Trade, len(trades))
		copy(next, trades)
	} else {
		next = make([]models.Trade, 0, len(trades))
		for _, trade := range trades {
			acct, ok := snap.Get(trade.AccountID)
			if ok && acct.EffectiveStatus() != models.AccountDeleted {
				next = append(next, trade)
			}
		}
	}

	l.mu.Lock()
	l.trades = next
	l.mu.Unlock()
}

// AddTrade persists a new trade under its account, then replicates it to
// each follower of that account.
//
// The primary write must succeed; its failure propagates to the caller and
// leaves local state untouched. Local state is also not updated on
// success: the realtime feed surfaces the new record, which keeps the
// writer-as-subscriber from double-entering it. Follower replication is
// concurrent, unordered and best-effort: individual failures are logged
// and recorded, never propagated.
func (l *Ledger) AddTrade(ctx context.Context, draft models.Trade) (models.Trade, error) {
	if draft.AccountID == "" {
		return models.Trade{}, errors.NewValidationError("accountId", draft.AccountID, "owning account is required")
	}
	if draft.Symbol == "" {
		return models.Trade{}, errors.NewValidationError("symbol", draft.Symbol, "symbol is required")
	}

	draft.OwnerID = l.ownerID
	if draft.ExitPrice != 0 {
		if draft.PnL == 0 {
			draft.PnL = draft.ComputePnL()
		}
		if draft.Result == "" {
			draft.Result = draft.DeriveResult()
		}
	}

	primary, err := l.store.CreateTrade(ctx, draft)
	if err != nil {
		return models.Trade{}, errors.Wrap(err, "creating trade")
	}

	report := l.replicate(ctx, primary)
	report.Log(l.logger)

	return primary, nil
}

// UpdateTrade applies a patch to a trade, writing remotely before merging
// into local state for that id only. Replicas are not kept in sync after
// creation.
func (l *Ledger) UpdateTrade(ctx context.Context, id string, patch TradePatch) error {
	trade, err := l.findTrade(ctx, id)
	if err != nil {
		return err
	}

	patch.apply(&trade)

	if err := l.store.PutTrade(ctx, trade); err != nil {
		return errors.Wrapf(err, "updating trade %s", id)
	}

	l.mergeLocal(trade)
	return nil
}

// ToggleMarkForReview flips the trade's review flag, clearing the
// reviewed-at timestamp when un-marking. The new state is returned for UI
// feedback.
func (l *Ledger) ToggleMarkForReview(ctx context.Context, id string) (bool, error) {
	trade, err := l.findTrade(ctx, id)
	if err != nil {
		return false, err
	}

	trade.MarkedForReview = !trade.MarkedForReview
	if !trade.MarkedForReview {
		trade.ReviewedAt = nil
	}

	if err := l.store.PutTrade(ctx, trade); err != nil {
		return false, errors.Wrapf(err, "toggling review on trade %s", id)
	}

	l.mergeLocal(trade)
	return trade.MarkedForReview, nil
}

// findTrade looks a trade up in local state, falling back to the store
// when the feed has not delivered it yet.
func (l *Ledger) findTrade(ctx context.Context, id string) (models.Trade, error) {
	l.mu.RLock()
	for _, trade := range l.trades {
		if trade.ID == id {
			l.mu.RUnlock()
			return trade, nil
		}
	}
	l.mu.RUnlock()

	return l.store.GetTrade(ctx, l.ownerID, id)
}

// mergeLocal updates the local list in place for one id.
func (l *Ledger) mergeLocal(updated models.Trade) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, trade := range l.trades {
		if trade.ID == updated.ID {
			l.trades[i] = updated
			return
		}
	}
}

// removeLocal drops one id from the local list.
func (l *Ledger) removeLocal(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, trade := range l.trades {
		if trade.ID == id {
			l.trades = append(l.trades[:i], l.trades[i+1:]...)
			return
		}
	}
}

// ============================================================================
// Read-side queries
// ============================================================================

// Trades returns a copy of the current trade list.
func (l *Ledger) Trades() []models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// TradesByAccount returns the trades owned by one account.
func (l *Ledger) TradesByAccount(accountID string) []models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []models.Trade
	for _, trade := range l.trades {
		if trade.AccountID == accountID {
			out = append(out, trade)
		}
	}
	return out
}

// TradesByDateRange returns trades whose effective time falls within
// [start, end].
func (l *Ledger) TradesByDateRange(start, end time.Time) []models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []models.Trade
	for _, trade := range l.trades {
		ts := trade.EffectiveTime()
		if !ts.Before(start) && !ts.After(end) {
			out = append(out, trade)
		}
	}
	return out
}

// TradesBySymbol returns trades whose symbol contains the given fragment,
// case-insensitively.
func (l *Ledger) TradesBySymbol(symbol string) []models.Trade {
	needle := strings.ToLower(symbol)
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []models.Trade
	for _, trade := range l.trades {
		if strings.Contains(strings.ToLower(trade.Symbol), needle) {
			out = append(out, trade)
		}
	}
	return out
}

// OpenTrades returns trades with no recorded exit.
func (l *Ledger) OpenTrades() []models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []models.Trade
	for _, trade := range l.trades {
		if trade.IsOpen() {
			out = append(out, trade)
		}
	}
	return out
}

// ClosedTrades returns trades with a recorded exit.
func (l *Ledger) ClosedTrades() []models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []models.Trade
	for _, trade := range l.trades {
		if !trade.IsOpen() {
			out = append(out, trade)
		}
	}
	return out
}

// RecentTrades returns the first n trades in feed order.
func (l *Ledger) RecentTrades(n int) []models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n > len(l.trades) {
		n = len(l.trades)
	}
	out := make([]models.Trade, n)
	copy(out, l.trades[:n])
	return out
}

// FilteredByTier narrows the trade list to the subscription tier's
// retention window. Purely a view: underlying records are never altered.
func (l *Ledger) FilteredByTier(tier models.Tier) []models.Trade {
	return retention.Filter(l.Trades(), tier, time.Now())
}
