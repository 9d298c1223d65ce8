package models

import "time"

// Trade represents a single journaled trade.
type Trade struct {
	ID        string `json:"id"`
	OwnerID   string `json:"ownerId,omitempty"`
	AccountID string `json:"accountId"`

	Symbol          string         `json:"symbol"`
	Direction       TradeDirection `json:"direction"`
	EntryPrice      float64        `json:"entryPrice"`
	ExitPrice       float64        `json:"exitPrice,omitempty"`
	Quantity        float64        `json:"quantity"`
	RiskAmount      float64        `json:"riskAmount"`
	RiskRewardRatio float64        `json:"riskRewardRatio"`
	// LossRR scales partial losses (e.g. 0.5 for a -0.5R stop). Zero means 1.
	LossRR float64 `json:"lossRR,omitempty"`

	Result TradeResult `json:"result,omitempty"`
	PnL    float64     `json:"pnl,omitempty"`
	// AccountBalance is the balance at trade time, for risk-percent math.
	AccountBalance float64 `json:"accountBalance,omitempty"`
	// PotentialR records how far price ran past target, wins only.
	PotentialR float64 `json:"potentialR,omitempty"`

	EntryTime time.Time  `json:"entryTime"`
	ExitTime  *time.Time `json:"exitTime,omitempty"`

	Mood            Mood              `json:"mood,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	Classifications map[string]string `json:"classifications,omitempty"`

	MarkedForReview bool       `json:"markedForReview,omitempty"`
	ReviewNote      string     `json:"reviewNote,omitempty"`
	ReviewTags      []string   `json:"reviewTags,omitempty"`
	ReviewedAt      *time.Time `json:"reviewedAt,omitempty"`

	// ExcludeFromAnalytics keeps the trade in P&L totals but out of win-rate
	// and RR statistics.
	ExcludeFromAnalytics bool `json:"excludeFromAnalytics,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsOpen reports whether the trade has no recorded exit.
func (t *Trade) IsOpen() bool {
	return t.ExitPrice == 0
}

// ComputePnL calculates the profit or loss from entry/exit prices.
// Open trades have zero P&L.
func (t *Trade) ComputePnL() float64 {
	if t.ExitPrice == 0 {
		return 0
	}
	diff := t.ExitPrice - t.EntryPrice
	if t.Direction == DirectionShort {
		diff = t.EntryPrice - t.ExitPrice
	}
	return diff * t.Quantity
}

// DeriveResult classifies the trade outcome from its computed P&L.
func (t *Trade) DeriveResult() TradeResult {
	pnl := t.ComputePnL()
	switch {
	case pnl > 0:
		return ResultWin
	case pnl < 0:
		return ResultLoss
	default:
		return ResultBreakeven
	}
}

// EffectiveTime returns the timestamp used for retention and date-range
// queries: entry time when set, creation time otherwise.
func (t *Trade) EffectiveTime() time.Time {
	if !t.EntryTime.IsZero() {
		return t.EntryTime
	}
	return t.CreatedAt
}
