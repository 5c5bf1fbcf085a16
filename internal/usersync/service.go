package usersync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/p-estor/ranksync-bot/internal/rank"
	"github.com/p-estor/ranksync-bot/internal/roles"
	"github.com/p-estor/ranksync-bot/internal/storage"
)

// ErrNoAccounts means the user has nothing linked; the caller decides
// whether that is worth a message or a role strip.
var ErrNoAccounts = errors.New("no linked accounts")

// Store is the slice of the account repository the service needs
type Store interface {
	ListByUser(ctx context.Context, userID string) ([]*storage.LinkedAccount, error)
	Upsert(ctx context.Context, a *storage.LinkedAccount) error
	Delete(ctx context.Context, userID, puuid string) (bool, error)
}

// Reconciler applies a desired role set to a member
type Reconciler interface {
	Reconcile(ctx context.Context, guildID, userID string, desired rank.RoleSet) (roles.Delta, error)
}

// Result reports one sync pass over a user
type Result struct {
	Delta  roles.Delta
	Labels []string
	// Partial is set when at least one ladder's tiers could not be
	// refreshed and stored values were used instead.
	Partial bool
}

// Service runs the store, fetch, aggregate, reconcile pipeline for one
// user at a time. It keeps no cross-user state, so calls for different
// users run fully in parallel. Two concurrent syncs for the same user
// are not serialized; reconciliation is idempotent, so an interleaved
// pair converges on the next pass.
type Service struct {
	store      Store
	fetcher    rank.Fetcher
	bindings   *rank.Bindings
	reconciler Reconciler
}

// NewService wires the pipeline
func NewService(store Store, fetcher rank.Fetcher, bindings *rank.Bindings, reconciler Reconciler) *Service {
	return &Service{
		store:      store,
		fetcher:    fetcher,
		bindings:   bindings,
		reconciler: reconciler,
	}
}

// SyncUser re-fetches tiers for every account the user has linked,
// persists them, and reconciles roles against the full aggregate.
// Ladders that fail to fetch keep their stored tier and flag the
// result partial. Returns ErrNoAccounts when nothing is linked.
func (s *Service) SyncUser(ctx context.Context, guildID, userID string) (*Result, error) {
	accounts, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load linked accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}

	partial, err := s.refreshTiers(ctx, accounts)
	if err != nil {
		return nil, err
	}

	for _, account := range accounts {
		if err := s.store.Upsert(ctx, account); err != nil {
			return nil, fmt.Errorf("failed to store refreshed tiers: %w", err)
		}
	}

	result, err := s.reconcileAccounts(ctx, guildID, userID, accounts)
	if result != nil {
		result.Partial = partial
	}
	return result, err
}

// LinkVerified finishes a successful verification challenge: a
// best-effort tier fetch for the new account, the cap-checked store
// write, then aggregation and reconciliation over ALL of the user's
// accounts: a second account must re-evaluate roles together with the
// first, never in isolation. The store write happens before any role
// mutation, so a store failure cannot leave roles drifted.
func (s *Service) LinkVerified(ctx context.Context, guildID string, account *storage.LinkedAccount) (*Result, error) {
	partial := false
	tiers, err := s.fetcher.FetchTiers(ctx, account.PUUID, account.TFTPUUID)
	if err != nil {
		// Linking proceeds with UNRANKED defaults; /refresh picks the
		// tiers up later.
		slog.Warn("Tier fetch failed during link, storing defaults",
			"userID", account.UserID, "riotID", account.RiotID(), "error", err)
		partial = true
	} else {
		partial = applyTiers(account, tiers)
	}

	if err := s.store.Upsert(ctx, account); err != nil {
		return nil, err
	}

	accounts, err := s.store.ListByUser(ctx, account.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load linked accounts: %w", err)
	}

	result, err := s.reconcileAccounts(ctx, guildID, account.UserID, accounts)
	if result != nil {
		result.Partial = partial
	}
	return result, err
}

// Unlink deletes one account and re-reconciles the remainder. When the
// last account goes, the explicit empty desired set strips every
// managed role. The bool reports whether anything was deleted.
func (s *Service) Unlink(ctx context.Context, guildID, userID, puuid string) (bool, *Result, error) {
	deleted, err := s.store.Delete(ctx, userID, puuid)
	if err != nil {
		return false, nil, fmt.Errorf("failed to delete account: %w", err)
	}
	if !deleted {
		return false, nil, nil
	}

	remaining, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return true, nil, fmt.Errorf("failed to load remaining accounts: %w", err)
	}

	result, err := s.reconcileAccounts(ctx, guildID, userID, remaining)
	return true, result, err
}

// refreshTiers fetches current tiers for every account concurrently,
// falling back to stored values for unavailable ladders.
func (s *Service) refreshTiers(ctx context.Context, accounts []*storage.LinkedAccount) (bool, error) {
	g, ctx := errgroup.WithContext(ctx)
	partials := make([]bool, len(accounts))

	for i, account := range accounts {
		i, account := i, account
		g.Go(func() error {
			tiers, err := s.fetcher.FetchTiers(ctx, account.PUUID, account.TFTPUUID)
			if err != nil {
				return err
			}
			partials[i] = applyTiers(account, tiers)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return false, err
	}

	partial := false
	for _, p := range partials {
		partial = partial || p
	}
	return partial, nil
}

// reconcileAccounts aggregates the accounts and applies the result
func (s *Service) reconcileAccounts(ctx context.Context, guildID, userID string, accounts []*storage.LinkedAccount) (*Result, error) {
	tierSets := make([]rank.TierSet, 0, len(accounts))
	for _, account := range accounts {
		tierSets = append(tierSets, account.Tiers())
	}

	desired, labels := rank.Aggregate(tierSets, s.bindings)

	delta, err := s.reconciler.Reconcile(ctx, guildID, userID, desired)
	result := &Result{Delta: delta, Labels: labels}
	if err != nil {
		return result, err
	}

	if !delta.Empty() {
		slog.Info("Roles reconciled", "userID", userID,
			"added", len(delta.Added), "removed", len(delta.Removed))
	}
	return result, nil
}

// applyTiers writes fetched tiers onto the account, keeping stored
// values for ladders that were unavailable this cycle. Reports whether
// any ladder was stale.
func applyTiers(account *storage.LinkedAccount, tiers map[rank.Ladder]rank.TierResult) bool {
	stale := false
	for _, ladder := range rank.Ladders() {
		switch res := tiers[ladder]; res.Status {
		case rank.TierRanked:
			account.SetTier(ladder, res.Tier)
		case rank.TierUnavailable:
			stale = true
		case rank.TierNotApplicable:
			// Nothing to fetch; the stored default stands.
		}
	}
	return stale
}
