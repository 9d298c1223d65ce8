// Package registry owns the authoritative in-memory set of trading
// accounts. Mutations write through to the remote document store before
// local state changes; the store's realtime snapshot feed is the single
// path by which newly created accounts become visible locally, which keeps
// a writer that is also a subscriber from seeing duplicates.
package registry

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trading-journal/internal/errors"
	"trading-journal/internal/models"
	"trading-journal/internal/store"
)

// AccountPatch carries a partial account update. Nil fields are left
// untouched.
type AccountPatch struct {
	Name             *string
	Type             *models.AccountType
	Balance          *float64
	Currency         *string
	Broker           *string
	Status           *models.AccountStatus
	ArchivedReason   *string
	PropFirm         *string
	AccountPhase     *models.AccountPhase
	ProfitTarget     *float64
	MaxDrawdown      *float64
	DailyLossLimit   *float64
	SessionRules     *models.SessionRules
	LinkedAccountIDs *[]string
}

func (p AccountPatch) apply(acct *models.TradingAccount) {
	if p.Name != nil {
		acct.Name = *p.Name
	}
	if p.Type != nil {
		acct.Type = *p.Type
	}
	if p.Balance != nil {
		acct.Balance = *p.Balance
	}
	if p.Currency != nil {
		acct.Currency = *p.Currency
	}
	if p.Broker != nil {
		acct.Broker = *p.Broker
	}
	if p.Status != nil {
		acct.Status = *p.Status
		acct.IsActive = nil
		switch *p.Status {
		case models.AccountArchived:
			now := time.Now().UTC()
			acct.ArchivedAt = &now
		default:
			acct.ArchivedAt = nil
			acct.ArchivedReason = ""
		}
	}
	if p.ArchivedReason != nil {
		acct.ArchivedReason = *p.ArchivedReason
	}
	if p.PropFirm != nil {
		acct.PropFirm = *p.PropFirm
	}
	if p.AccountPhase != nil {
		acct.AccountPhase = *p.AccountPhase
	}
	if p.ProfitTarget != nil {
		acct.ProfitTarget = *p.ProfitTarget
	}
	if p.MaxDrawdown != nil {
		acct.MaxDrawdown = *p.MaxDrawdown
	}
	if p.DailyLossLimit != nil {
		acct.DailyLossLimit = *p.DailyLossLimit
	}
	if p.SessionRules != nil {
		rules := *p.SessionRules
		acct.SessionRules = &rules
	}
	// LinkedAccountIDs is handled by UpdateAccount so leadership stays
	// exclusive.
}

// Registry holds the account set for one owner.
type Registry struct {
	store   store.DocumentStore
	ownerID string
	logger  zerolog.Logger

	mu       sync.RWMutex
	accounts map[string]models.TradingAccount

	subMu sync.Mutex
	sub   *store.Subscription[models.TradingAccount]
	done  chan struct{}
}

// New creates a registry over the given store for one owner.
func New(st store.DocumentStore, ownerID string, logger zerolog.Logger) *Registry {
	return &Registry{
		store:    st,
		ownerID:  ownerID,
		logger:   logger.With().Str("component", "registry").Logger(),
		accounts: make(map[string]models.TradingAccount),
	}
}

// Start subscribes to the account snapshot feed and applies snapshots as
// they arrive. Any previous subscription for this registry is disposed of
// first so listeners do not accumulate across re-initialization.
func (r *Registry) Start(ctx context.Context) error {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	if r.sub != nil {
		r.sub.Close()
		<-r.done
	}

	sub, err := r.store.WatchAccounts(ctx, r.ownerID)
	if err != nil {
		return errors.Wrap(err, "watching accounts")
	}
	r.sub = sub
	r.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		for snapshot := range sub.Snapshots() {
			r.ApplySnapshot(snapshot)
		}
	}(r.done)

	return nil
}

// Stop disposes of the snapshot subscription.
func (r *Registry) Stop() {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	if r.sub != nil {
		r.sub.Close()
		<-r.done
		r.sub = nil
	}
}

// Refresh synchronously loads the current account set from the store and
// installs it. Used where a caller cannot wait for the feed, e.g. one-shot
// CLI commands.
func (r *Registry) Refresh(ctx context.Context) error {
	accounts, err := r.store.ListAccounts(ctx, r.ownerID)
	if err != nil {
		return errors.Wrap(err, "listing accounts")
	}
	r.ApplySnapshot(accounts)
	return nil
}

// ApplySnapshot installs a full account snapshot from the realtime feed.
// The feed is authoritative: the local set is replaced wholesale,
// deduplicated by id.
func (r *Registry) ApplySnapshot(accounts []models.TradingAccount) {
	next := make(map[string]models.TradingAccount, len(accounts))
	for _, acct := range accounts {
		next[acct.ID] = acct
	}

	r.mu.Lock()
	r.accounts = next
	r.mu.Unlock()
}

// Snapshot returns an immutable view of the current account set.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	accounts := make([]models.TradingAccount, 0, len(r.accounts))
	for _, acct := range r.accounts {
		accounts = append(accounts, acct)
	}
	r.mu.RUnlock()
	return NewSnapshot(accounts)
}

// AddAccount creates a new account. The local cache is not touched: the
// realtime feed surfaces the new record, which prevents duplicate entries
// when the writer is also a subscriber.
func (r *Registry) AddAccount(ctx context.Context, draft models.TradingAccount) (models.TradingAccount, error) {
	if draft.Name == "" {
		return models.TradingAccount{}, errors.NewValidationError("name", draft.Name, "account name is required")
	}
	draft.OwnerID = r.ownerID
	if draft.Status == "" {
		draft.Status = models.AccountActive
	}
	draft.IsActive = nil

	created, err := r.store.CreateAccount(ctx, draft)
	if err != nil {
		return models.TradingAccount{}, errors.Wrap(err, "creating account")
	}

	r.logger.Info().Str("account_id", created.ID).Str("name", created.Name).Msg("Account created")
	return created, nil
}

// UpdateAccount applies a patch to an account, writing remotely before
// merging into local state.
//
// When the patch touches LinkedAccountIDs the desired follower set is
// normalized (deduplicated, the account itself and unknown ids dropped)
// and every other account currently holding followers is cleared in the
// same batch of writes, so leadership stays exclusive. All written records
// are then merged into local state in one pass.
func (r *Registry) UpdateAccount(ctx context.Context, id string, patch AccountPatch) error {
	r.mu.RLock()
	target, ok := r.accounts[id]
	r.mu.RUnlock()
	if !ok {
		return errors.ErrAccountNotFound
	}

	patch.apply(&target)

	batch := []models.TradingAccount{}
	if patch.LinkedAccountIDs != nil {
		target.LinkedAccountIDs = r.normalizeFollowers(id, *patch.LinkedAccountIDs)

		// Clear every other current leader in the same logical
		// operation.
		r.mu.RLock()
		for _, acct := range r.accounts {
			if acct.ID != id && acct.IsLeader() {
				cleared := acct
				cleared.LinkedAccountIDs = nil
				batch = append(batch, cleared)
			}
		}
		r.mu.RUnlock()
	}
	batch = append(batch, target)

	for _, acct := range batch {
		if err := r.store.PutAccount(ctx, acct); err != nil {
			// Local state stays untouched; the snapshot feed
			// reconciles whatever subset was written.
			return errors.Wrapf(err, "updating account %s", acct.ID)
		}
	}

	// Merge all written records into local state in one pass.
	r.mu.Lock()
	for _, acct := range batch {
		r.accounts[acct.ID] = acct
	}
	r.mu.Unlock()

	return nil
}

// normalizeFollowers deduplicates the follower set, dropping the leader
// itself and ids that no longer exist.
func (r *Registry) normalizeFollowers(leaderID string, ids []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(ids))
	var followers []string
	for _, fid := range ids {
		if fid == "" || fid == leaderID || seen[fid] {
			continue
		}
		if _, exists := r.accounts[fid]; !exists {
			continue
		}
		seen[fid] = true
		followers = append(followers, fid)
	}
	return followers
}

// RemoveAccount deletes an account remotely, then locally.
func (r *Registry) RemoveAccount(ctx context.Context, id string) error {
	if err := r.store.DeleteAccount(ctx, r.ownerID, id); err != nil {
		return errors.Wrapf(err, "removing account %s", id)
	}

	r.mu.Lock()
	delete(r.accounts, id)
	r.mu.Unlock()

	r.logger.Info().Str("account_id", id).Msg("Account removed")
	return nil
}

// DuplicateAccount clones an account's business fields under a
// disambiguated name. Link set, archival fields and timestamps are not
// carried over, and the clone is always created active.
func (r *Registry) DuplicateAccount(ctx context.Context, id string) (models.TradingAccount, error) {
	r.mu.RLock()
	source, ok := r.accounts[id]
	r.mu.RUnlock()
	if !ok {
		return models.TradingAccount{}, errors.ErrAccountNotFound
	}

	draft := models.TradingAccount{
		Name:           r.duplicateName(source.Name),
		Type:           source.Type,
		Balance:        source.Balance,
		Currency:       source.Currency,
		Broker:         source.Broker,
		PropFirm:       source.PropFirm,
		AccountPhase:   source.AccountPhase,
		ProfitTarget:   source.ProfitTarget,
		MaxDrawdown:    source.MaxDrawdown,
		DailyLossLimit: source.DailyLossLimit,
		Status:         models.AccountActive,
	}
	if source.SessionRules != nil {
		rules := *source.SessionRules
		draft.SessionRules = &rules
	}

	return r.AddAccount(ctx, draft)
}

// duplicateName finds the highest numeric suffix sharing the source's base
// name and increments it, so repeated duplication yields "Name 2",
// "Name 3", and so on.
func (r *Registry) duplicateName(sourceName string) string {
	base := baseName(sourceName)

	highest := 1
	r.mu.RLock()
	for _, acct := range r.accounts {
		if acct.Name == base {
			continue
		}
		suffix, ok := numericSuffix(acct.Name, base)
		if ok && suffix > highest {
			highest = suffix
		}
	}
	r.mu.RUnlock()

	return fmt.Sprintf("%s %d", base, highest+1)
}

// baseName strips a trailing numeric suffix, if present.
func baseName(name string) string {
	i := strings.LastIndex(name, " ")
	if i < 0 {
		return name
	}
	if _, err := strconv.Atoi(name[i+1:]); err != nil {
		return name
	}
	return name[:i]
}

// numericSuffix extracts N from "base N".
func numericSuffix(name, base string) (int, bool) {
	if !strings.HasPrefix(name, base+" ") {
		return 0, false
	}
	n, err := strconv.Atoi(name[len(base)+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// EnsureBootstrapAccount creates a default account when the owner has
// none, so first-run users always have somewhere to log trades.
func (r *Registry) EnsureBootstrapAccount(ctx context.Context, name string) (models.TradingAccount, bool, error) {
	existing, err := r.store.ListAccounts(ctx, r.ownerID)
	if err != nil {
		return models.TradingAccount{}, false, errors.Wrap(err, "listing accounts")
	}
	if len(existing) > 0 {
		return models.TradingAccount{}, false, nil
	}

	created, err := r.AddAccount(ctx, models.TradingAccount{
		Name:     name,
		Type:     models.AccountDemo,
		Balance:  10000,
		Currency: "USD",
		Broker:   "Demo Broker",
	})
	if err != nil {
		return models.TradingAccount{}, false, err
	}
	return created, true, nil
}

// DefaultSelectionID picks the account to select when nothing is
// selected: any leader first, then the first active account in creation
// order, then any account at all. Empty when no accounts exist.
func (r *Registry) DefaultSelectionID() string {
	return DefaultSelectionID(r.Snapshot())
}

// DefaultSelectionID applies the default-selection preference to a
// snapshot.
func DefaultSelectionID(snap Snapshot) string {
	if leaders := snap.Leaders(); len(leaders) > 0 {
		return leaders[0].ID
	}
	for _, acct := range snap.Accounts() {
		if acct.EffectiveStatus() == models.AccountActive {
			return acct.ID
		}
	}
	if snap.Len() > 0 {
		return snap.Accounts()[0].ID
	}
	return ""
}
