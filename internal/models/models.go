// Package models defines the core domain types for the trading journal.
package models

// AccountStatus represents the lifecycle status of a trading account.
type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountArchived AccountStatus = "archived"
	AccountDeleted  AccountStatus = "deleted"
)

// AccountType represents the kind of trading account.
type AccountType string

const (
	AccountLive  AccountType = "live"
	AccountDemo  AccountType = "demo"
	AccountPaper AccountType = "paper"
	AccountProp  AccountType = "prop"
)

// AccountPhase represents the evaluation phase of a prop-firm account.
type AccountPhase string

const (
	PhaseEvaluation AccountPhase = "evaluation"
	PhaseFunded     AccountPhase = "funded"
	PhaseBreached   AccountPhase = "breached"
	PhasePassed     AccountPhase = "passed"
)

// TradeDirection represents the direction of a trade.
type TradeDirection string

const (
	DirectionLong  TradeDirection = "long"
	DirectionShort TradeDirection = "short"
)

// TradeResult represents the outcome of a closed trade.
type TradeResult string

const (
	ResultWin       TradeResult = "win"
	ResultLoss      TradeResult = "loss"
	ResultBreakeven TradeResult = "breakeven"
)

// Mood represents the trader's self-reported mood on a trade.
type Mood string

const (
	MoodConfident  Mood = "confident"
	MoodNeutral    Mood = "neutral"
	MoodAnxious    Mood = "anxious"
	MoodFrustrated Mood = "frustrated"
	MoodExcited    Mood = "excited"
)

// Tier represents a subscription tier.
type Tier string

const (
	TierTrial   Tier = "trial"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
)

// Valid reports whether the tier is a known subscription tier.
func (t Tier) Valid() bool {
	switch t {
	case TierTrial, TierBasic, TierPremium:
		return true
	}
	return false
}
