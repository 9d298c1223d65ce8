package selection

import (
	"trading-journal/internal/models"
	"trading-journal/internal/registry"
)

// Resolve maps a descriptor plus an account snapshot into a concrete,
// deduplicated, order-stable list of account ids.
//
// Status rules: deleted accounts never resolve. Archived accounts are
// excluded from "all" aggregates unless includeArchived is set, but a
// direct single selection returns an archived account regardless, so
// archived history stays individually viewable.
func Resolve(desc Descriptor, snap registry.Snapshot, includeArchived bool) []string {
	switch desc.Kind {
	case KindAllActive, KindAllIncludingArchived:
		includeAll := includeArchived || desc.Kind == KindAllIncludingArchived
		var ids []string
		for _, acct := range snap.Accounts() {
			if passesStatusFilter(acct, includeAll) {
				ids = append(ids, acct.ID)
			}
		}
		return ids

	case KindGroup:
		leader, ok := snap.Get(desc.ID)
		if !ok {
			return nil
		}
		var ids []string
		if passesStatusFilter(leader, includeArchived) {
			ids = append(ids, leader.ID)
		}
		for _, fid := range leader.LinkedAccountIDs {
			if follower, ok := snap.Get(fid); ok && passesStatusFilter(follower, includeArchived) {
				ids = append(ids, follower.ID)
			}
		}
		return ids

	case KindMultiSet:
		seen := make(map[string]bool, len(desc.MultiIDs))
		var ids []string
		for _, id := range desc.MultiIDs {
			if seen[id] {
				continue
			}
			if acct, ok := snap.Get(id); ok && selectableDirectly(acct) {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		return ids

	default: // KindSingle
		if acct, ok := snap.Get(desc.ID); ok && selectableDirectly(acct) {
			return []string{acct.ID}
		}
		return nil
	}
}

// ResolveGroupFromAnySelection recovers the whole replication group
// (leader first, followers after) from any selection that touches it:
// a group descriptor, the leader's own id, or any follower's id. A
// selection outside any group resolves to the singleton.
func ResolveGroupFromAnySelection(desc Descriptor, snap registry.Snapshot) []string {
	leaderID := ""
	switch desc.Kind {
	case KindGroup:
		leaderID = desc.ID
	case KindSingle:
		if acct, ok := snap.Get(desc.ID); ok {
			if acct.IsLeader() {
				leaderID = acct.ID
			} else if leader, ok := snap.LeaderOf(acct.ID); ok {
				leaderID = leader.ID
			}
		}
	default:
		return Resolve(desc, snap, false)
	}

	if leaderID == "" {
		// Not part of any group: the singleton, if it exists.
		if _, ok := snap.Get(desc.ID); ok {
			return []string{desc.ID}
		}
		return nil
	}

	leader, ok := snap.Get(leaderID)
	if !ok {
		return nil
	}
	ids := []string{leader.ID}
	for _, fid := range leader.LinkedAccountIDs {
		if _, ok := snap.Get(fid); ok {
			ids = append(ids, fid)
		}
	}
	return ids
}

// passesStatusFilter applies the aggregate status rule: active always
// passes, archived passes only when archived accounts are included,
// deleted never passes.
func passesStatusFilter(acct models.TradingAccount, includeArchived bool) bool {
	switch acct.EffectiveStatus() {
	case models.AccountDeleted:
		return false
	case models.AccountArchived:
		return includeArchived
	default:
		return true
	}
}

// selectableDirectly applies the direct-selection rule: anything but
// deleted can be picked by id, archived included.
func selectableDirectly(acct models.TradingAccount) bool {
	return acct.EffectiveStatus() != models.AccountDeleted
}
