// Package retention applies subscription-tier retention windows to trade
// views. Filtering is a read-time view transformation only; it never
// deletes or alters underlying records.
package retention

import (
	"fmt"
	"time"

	"trading-journal/internal/models"
)

// TierLimits describes what a subscription tier may see.
type TierLimits struct {
	// DataRetentionDays bounds how far back trades remain visible.
	// Zero means unlimited.
	DataRetentionDays   int
	HasSetupAnalytics   bool
	HasCalendarHeatmap  bool
	HasCustomDateRanges bool
	HasTimeIntelligence bool
	HasInsightHistory   bool
}

// tierLimits maps each tier to its limits. The trial tier grants full
// access for its duration; only basic is window-limited.
var tierLimits = map[models.Tier]TierLimits{
	models.TierTrial: {
		DataRetentionDays:   0,
		HasSetupAnalytics:   true,
		HasCalendarHeatmap:  true,
		HasCustomDateRanges: true,
		HasTimeIntelligence: true,
		HasInsightHistory:   true,
	},
	models.TierBasic: {
		DataRetentionDays: 30,
	},
	models.TierPremium: {
		DataRetentionDays:   0,
		HasSetupAnalytics:   true,
		HasCalendarHeatmap:  true,
		HasCustomDateRanges: true,
		HasTimeIntelligence: true,
		HasInsightHistory:   true,
	},
}

// Limits returns the limits for a tier. Unknown tiers get the narrowest
// window rather than unlimited access.
func Limits(tier models.Tier) TierLimits {
	if limits, ok := tierLimits[tier]; ok {
		return limits
	}
	return tierLimits[models.TierBasic]
}

// Filter narrows trades to the tier's retention window relative to now.
// The input slice is not modified. Trades are compared by entry time,
// falling back to creation time; dateless records are kept.
func Filter(trades []models.Trade, tier models.Tier, now time.Time) []models.Trade {
	limits := Limits(tier)
	if limits.DataRetentionDays == 0 {
		out := make([]models.Trade, len(trades))
		copy(out, trades)
		return out
	}

	cutoff := now.AddDate(0, 0, -limits.DataRetentionDays)
	out := make([]models.Trade, 0, len(trades))
	for _, trade := range trades {
		ts := trade.EffectiveTime()
		if ts.IsZero() || !ts.Before(cutoff) {
			out = append(out, trade)
		}
	}
	return out
}

// Message returns a user-facing description of the tier's retention window.
func Message(tier models.Tier) string {
	limits := Limits(tier)
	if limits.DataRetentionDays == 0 {
		return "Unlimited history"
	}
	return fmt.Sprintf("%d-day history", limits.DataRetentionDays)
}
