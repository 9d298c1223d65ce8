package retention

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"trading-journal/internal/models"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func tradeAgedDays(days int) models.Trade {
	return models.Trade{
		ID:        "t",
		Symbol:    "ES",
		EntryTime: now.AddDate(0, 0, -days),
	}
}

func TestLimitsUnknownTierIsNarrow(t *testing.T) {
	assert.Equal(t, Limits(models.TierBasic), Limits(models.Tier("enterprise")))
}

func TestFilterBasicWindow(t *testing.T) {
	trades := []models.Trade{
		tradeAgedDays(1),
		tradeAgedDays(29),
		tradeAgedDays(31),
		tradeAgedDays(365),
	}

	got := Filter(trades, models.TierBasic, now)
	assert.Len(t, got, 2)
	for _, trade := range got {
		assert.True(t, trade.EffectiveTime().After(now.AddDate(0, 0, -30)))
	}
}

func TestFilterUnlimitedTiers(t *testing.T) {
	trades := []models.Trade{tradeAgedDays(1), tradeAgedDays(400)}

	assert.Len(t, Filter(trades, models.TierTrial, now), 2)
	assert.Len(t, Filter(trades, models.TierPremium, now), 2)
}

func TestFilterKeepsDatelessTrades(t *testing.T) {
	trades := []models.Trade{{ID: "dateless", Symbol: "NQ"}}
	got := Filter(trades, models.TierBasic, now)
	assert.Len(t, got, 1)
}

func TestFilterDoesNotModifyInput(t *testing.T) {
	trades := []models.Trade{tradeAgedDays(1), tradeAgedDays(400)}
	before := make([]models.Trade, len(trades))
	copy(before, trades)

	_ = Filter(trades, models.TierBasic, now)
	assert.Equal(t, before, trades)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Unlimited history", Message(models.TierPremium))
	assert.Equal(t, "30-day history", Message(models.TierBasic))
}
