package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trading-journal/internal/errors"
	"trading-journal/internal/logging"
	"trading-journal/internal/models"
)

// ReplicationReport records the per-follower outcome of a fan-out, so a
// partial failure is discoverable instead of vanishing into a log line.
type ReplicationReport struct {
	SourceTradeID string
	// Replicated maps follower account id to the replica's trade id.
	Replicated map[string]string
	Failed     []*errors.ReplicationError
}

// Partial reports whether some followers missed the trade.
func (r ReplicationReport) Partial() bool {
	return len(r.Failed) > 0
}

// Log writes the report through the structured logger: one warning per
// failed follower, one summary line when any fan-out happened.
func (r ReplicationReport) Log(logger zerolog.Logger) {
	for _, failure := range r.Failed {
		logger.Warn().
			Str("source_trade_id", failure.SourceTradeID).
			Str("account_id", failure.AccountID).
			Err(failure.Err).
			Msg("Replica write failed")
	}
	if len(r.Replicated) > 0 || len(r.Failed) > 0 {
		logging.LogReplication(logger, r.SourceTradeID, len(r.Replicated), len(r.Failed))
	}
}

// replicate fans the primary trade out to every follower of its owning
// account. Writes are issued concurrently and unordered; each failure is
// captured in the report and never propagated, so partial replication is a
// recoverable inconsistency rather than a failed trade.
func (l *Ledger) replicate(ctx context.Context, primary models.Trade) ReplicationReport {
	report := ReplicationReport{
		SourceTradeID: primary.ID,
		Replicated:    make(map[string]string),
	}

	acct, ok := l.registry.Snapshot().Get(primary.AccountID)
	if !ok || !acct.IsLeader() {
		return report
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, followerID := range acct.LinkedAccountIDs {
		wg.Add(1)
		go func(followerID string) {
			defer wg.Done()

			replica := replicaOf(primary, followerID)
			created, err := l.store.CreateTrade(ctx, replica)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed = append(report.Failed,
					errors.NewReplicationError(primary.ID, followerID, err))
				return
			}
			report.Replicated[followerID] = created.ID
		}(followerID)
	}
	wg.Wait()

	return report
}

// replicaOf copies the primary's business fields under the follower
// account. The store assigns the replica a fresh id and timestamps; no
// back-reference to the original is stored.
func replicaOf(primary models.Trade, followerID string) models.Trade {
	replica := primary
	replica.ID = ""
	replica.AccountID = followerID
	replica.CreatedAt = time.Time{} // the store assigns fresh timestamps
	replica.UpdatedAt = time.Time{}

	replica.Tags = append([]string(nil), primary.Tags...)
	replica.ReviewTags = append([]string(nil), primary.ReviewTags...)
	if primary.Classifications != nil {
		replica.Classifications = make(map[string]string, len(primary.Classifications))
		for k, v := range primary.Classifications {
			replica.Classifications[k] = v
		}
	}
	if primary.ExitTime != nil {
		t := *primary.ExitTime
		replica.ExitTime = &t
	}
	return replica
}
