package retention

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"trading-journal/internal/models"
)

// Property: retention filtering is a non-destructive, monotone view
//
// For any trade set: the output is a subset of the input in original
// order, the input is never modified, and a wider tier never sees fewer
// trades than a narrower one.
func TestPropertyRetentionFilter(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	ref := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	makeTrades := func(ages []int) []models.Trade {
		trades := make([]models.Trade, len(ages))
		for i, age := range ages {
			if age < 0 {
				age = -age
			}
			trades[i] = models.Trade{
				ID:        string(rune('a' + i%26)),
				Symbol:    "ES",
				EntryTime: ref.AddDate(0, 0, -age),
			}
		}
		return trades
	}

	properties.Property("subset, order-preserving, input untouched", prop.ForAll(
		func(ages []int) bool {
			trades := makeTrades(ages)
			before := make([]models.Trade, len(trades))
			copy(before, trades)

			got := Filter(trades, models.TierBasic, ref)

			// Input untouched.
			for i := range trades {
				if !trades[i].EntryTime.Equal(before[i].EntryTime) {
					return false
				}
			}

			// Order-preserving subset.
			j := 0
			for _, trade := range got {
				found := false
				for ; j < len(trades); j++ {
					if trades[j].ID == trade.ID && trades[j].EntryTime.Equal(trade.EntryTime) {
						found = true
						j++
						break
					}
				}
				if !found {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 500)),
	))

	properties.Property("wider tiers see at least as much", prop.ForAll(
		func(ages []int) bool {
			trades := makeTrades(ages)

			basic := len(Filter(trades, models.TierBasic, ref))
			trial := len(Filter(trades, models.TierTrial, ref))
			premium := len(Filter(trades, models.TierPremium, ref))

			return basic <= premium && basic <= trial && trial == premium && premium == len(trades)
		},
		gen.SliceOf(gen.IntRange(0, 500)),
	))

	properties.TestingRun(t)
}
