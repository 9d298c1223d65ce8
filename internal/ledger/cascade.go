package ledger

import (
	"context"
	"time"

	"trading-journal/internal/errors"
	"trading-journal/internal/logging"
	"trading-journal/internal/models"
	"trading-journal/internal/store"
)

// replicaMatchWindow bounds how far apart two entry times may be for two
// trades on linked accounts to be considered copies of one another.
// Replicas carry no back-reference to their original, so deletion recovers
// the relation by matching symbol plus near-equal entry time. The match is
// a heuristic: near-simultaneous distinct trades on the same symbol across
// linked accounts can be deleted or missed incorrectly.
const replicaMatchWindow = 60 * time.Second

// DeleteTrade deletes the primary record, propagating any failure. With
// cascade enabled it then finds and deletes the trade's likely replicas in
// linked accounts; those secondary deletes are best-effort and their
// failures are logged, never propagated.
func (l *Ledger) DeleteTrade(ctx context.Context, id string, cascade bool) error {
	trade, err := l.findTrade(ctx, id)
	if err != nil {
		return err
	}

	if err := l.store.DeleteTrade(ctx, l.ownerID, id); err != nil {
		return errors.Wrapf(err, "deleting trade %s", id)
	}
	l.removeLocal(id)

	if !cascade {
		return nil
	}

	deleted := 0
	for _, accountID := range l.relatedAccountIDs(trade.AccountID) {
		deleted += l.deleteShadows(ctx, accountID, trade)
	}
	logging.LogCascadeDelete(l.logger, id, deleted)
	return nil
}

// relatedAccountIDs computes the accounts that may hold replicas of a
// trade on the given account: the account's own followers, plus, when the
// account is itself a follower, its leader and that leader's other
// followers.
func (l *Ledger) relatedAccountIDs(accountID string) []string {
	snap := l.registry.Snapshot()

	seen := map[string]bool{accountID: true}
	var related []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			related = append(related, id)
		}
	}

	if acct, ok := snap.Get(accountID); ok {
		for _, fid := range acct.LinkedAccountIDs {
			add(fid)
		}
	}
	if leader, ok := snap.LeaderOf(accountID); ok {
		add(leader.ID)
		for _, fid := range leader.LinkedAccountIDs {
			add(fid)
		}
	}
	return related
}

// deleteShadows deletes every trade on the account matching the deleted
// trade's symbol with an entry time inside the match window. Returns the
// number deleted. A non-match is silently a no-op.
func (l *Ledger) deleteShadows(ctx context.Context, accountID string, original models.Trade) int {
	candidates, err := l.store.ListTrades(ctx, l.ownerID, store.TradeFilter{
		AccountID: accountID,
		Symbol:    original.Symbol,
	})
	if err != nil {
		l.logger.Warn().
			Str("account_id", accountID).
			Err(err).
			Msg("Cascade delete: listing candidates failed")
		return 0
	}

	deleted := 0
	for _, candidate := range candidates {
		if !isShadowOf(candidate, original) {
			continue
		}
		if err := l.store.DeleteTrade(ctx, l.ownerID, candidate.ID); err != nil {
			l.logger.Warn().
				Str("trade_id", candidate.ID).
				Str("account_id", accountID).
				Err(err).
				Msg("Cascade delete: replica delete failed")
			continue
		}
		l.removeLocal(candidate.ID)
		deleted++
	}
	return deleted
}

// isShadowOf reports whether candidate looks like a replica of original:
// identical symbol, entry times within the match window.
func isShadowOf(candidate, original models.Trade) bool {
	if candidate.Symbol != original.Symbol {
		return false
	}
	delta := candidate.EntryTime.Sub(original.EntryTime)
	if delta < 0 {
		delta = -delta
	}
	return delta < replicaMatchWindow
}
