// Package selection resolves account-selection descriptors into concrete
// account id lists. All resolution is pure: identical inputs always
// produce identical, order-stable output, because UI memoization keys off
// the resolved list.
package selection

import "strings"

// Wire forms of the selection descriptor. The string descriptor is decoded
// once at the boundary; core logic only ever sees the typed form.
const (
	// AllAccountsSentinel selects every account including archived ones,
	// excluding deleted.
	AllAccountsSentinel = "all"
	// groupPrefix marks a leader-group selection: "group:<leaderID>".
	groupPrefix = "group:"
)

// Kind discriminates descriptor variants.
type Kind int

const (
	// KindAllActive selects all accounts passing the active-status filter.
	KindAllActive Kind = iota
	// KindAllIncludingArchived selects all non-deleted accounts.
	KindAllIncludingArchived
	// KindSingle selects one account by id.
	KindSingle
	// KindGroup selects a leader and its followers.
	KindGroup
	// KindMultiSet selects an explicit set of account ids.
	KindMultiSet
)

// Descriptor identifies which account or accounts an operation targets.
type Descriptor struct {
	Kind     Kind
	ID       string   // Single: account id; Group: leader id
	MultiIDs []string // MultiSet only
}

// AllActive returns the descriptor for all active accounts.
func AllActive() Descriptor {
	return Descriptor{Kind: KindAllActive}
}

// AllIncludingArchived returns the descriptor for all non-deleted accounts.
func AllIncludingArchived() Descriptor {
	return Descriptor{Kind: KindAllIncludingArchived}
}

// Single returns the descriptor for one account.
func Single(id string) Descriptor {
	return Descriptor{Kind: KindSingle, ID: id}
}

// Group returns the descriptor for a leader and its followers.
func Group(leaderID string) Descriptor {
	return Descriptor{Kind: KindGroup, ID: leaderID}
}

// MultiSet returns the descriptor for an explicit account id set.
// Multi-select always wins over a legacy single-id descriptor when active.
func MultiSet(ids []string) Descriptor {
	return Descriptor{Kind: KindMultiSet, MultiIDs: ids}
}

// ParseDescriptor decodes the wire form of a selection descriptor. An
// empty descriptor means all active accounts.
func ParseDescriptor(raw string) Descriptor {
	switch {
	case raw == "":
		return AllActive()
	case raw == AllAccountsSentinel:
		return AllIncludingArchived()
	case strings.HasPrefix(raw, groupPrefix):
		return Group(strings.TrimPrefix(raw, groupPrefix))
	default:
		return Single(raw)
	}
}

// String renders the descriptor back into its wire form. MultiSet has no
// wire form; it renders as its id list joined by commas for logging only.
func (d Descriptor) String() string {
	switch d.Kind {
	case KindAllActive:
		return ""
	case KindAllIncludingArchived:
		return AllAccountsSentinel
	case KindGroup:
		return groupPrefix + d.ID
	case KindMultiSet:
		return strings.Join(d.MultiIDs, ",")
	default:
		return d.ID
	}
}
