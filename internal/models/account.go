package models

import "time"

// SessionRules holds optional per-account risk-rule overrides.
// The journal core stores these verbatim for the rules engine; it does not
// interpret them.
type SessionRules struct {
	MaxTrades          *int     `json:"maxTrades,omitempty"`
	CutoffTimeMinutes  *int     `json:"cutoffTimeMinutes,omitempty"`
	AutoLockoutEnabled bool     `json:"autoLockoutEnabled,omitempty"`
	RiskPerTrade       *float64 `json:"riskPerTrade,omitempty"`
	MaxLossesPerDay    *int     `json:"maxLossesPerDay,omitempty"`
	DailyLossCap       *float64 `json:"dailyLossCap,omitempty"`
	Enforcement        string   `json:"enforcement,omitempty"` // off, nudge, lockout, hard
}

// TradingAccount represents a single trading account in the journal.
//
// An account whose LinkedAccountIDs is non-empty is a leader: trades logged
// to it are replicated to each linked follower account. Leadership is
// exclusive: an account may be listed as a follower of at most one leader.
type TradingAccount struct {
	ID       string      `json:"id"`
	OwnerID  string      `json:"ownerId,omitempty"`
	Name     string      `json:"name"`
	Type     AccountType `json:"type"`
	Balance  float64     `json:"balance"`
	Currency string      `json:"currency"`
	Broker   string      `json:"broker,omitempty"`

	Status AccountStatus `json:"status,omitempty"`
	// Deprecated: kept for backwards compatibility, use Status instead.
	IsActive *bool `json:"isActive,omitempty"`

	ArchivedAt     *time.Time `json:"archivedAt,omitempty"`
	ArchivedReason string     `json:"archivedReason,omitempty"`

	// Prop-firm metadata, passed through to analytics collaborators.
	PropFirm     string       `json:"propFirm,omitempty"`
	AccountPhase AccountPhase `json:"accountPhase,omitempty"`
	ProfitTarget float64      `json:"profitTarget,omitempty"`
	MaxDrawdown  float64      `json:"maxDrawdown,omitempty"`

	// Trades logged to this account are replicated to each of these
	// linked account IDs.
	LinkedAccountIDs []string `json:"linkedAccountIds,omitempty"`

	DailyLossLimit float64       `json:"dailyLossLimit,omitempty"`
	SessionRules   *SessionRules `json:"sessionRules,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EffectiveStatus resolves the account status, honoring the legacy IsActive
// flag for records written before the status field existed: IsActive=false
// maps to archived, absent maps to active.
func (a *TradingAccount) EffectiveStatus() AccountStatus {
	if a.Status != "" {
		return a.Status
	}
	if a.IsActive != nil && !*a.IsActive {
		return AccountArchived
	}
	return AccountActive
}

// IsLeader reports whether this account replicates trades to followers.
func (a *TradingAccount) IsLeader() bool {
	return len(a.LinkedAccountIDs) > 0
}

// HasFollower reports whether the given account id is a follower of this
// account.
func (a *TradingAccount) HasFollower(id string) bool {
	for _, fid := range a.LinkedAccountIDs {
		if fid == id {
			return true
		}
	}
	return false
}
