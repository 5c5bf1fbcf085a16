package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/p-estor/ranksync-bot/internal/usersync"
)

// UserLister enumerates users with at least one linked account
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}

// Syncer re-syncs one user's tiers and roles
type Syncer interface {
	SyncUser(ctx context.Context, guildID, userID string) (*usersync.Result, error)
}

// Poller periodically re-verifies every linked user: tiers are
// re-fetched and role membership reconciled, so ranks that changed
// between manual refreshes converge on their own.
type Poller struct {
	users    UserLister
	service  Syncer
	guildID  string
	interval time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a poller over the sync service
func New(users UserLister, service Syncer, guildID string, intervalSeconds int) *Poller {
	return &Poller{
		users:    users,
		service:  service,
		guildID:  guildID,
		interval: time.Duration(intervalSeconds) * time.Second,
		stopChan: make(chan struct{}),
	}
}

// Start begins the sweep loop
func (p *Poller) Start(ctx context.Context) {
	slog.Info("Starting refresh poller", "interval", p.interval)

	p.wg.Add(1)
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Refresh poller stopped (context cancelled)")
			return
		case <-p.stopChan:
			slog.Info("Refresh poller stopped")
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

// Stop signals the poller to stop and waits for the loop to exit
func (p *Poller) Stop() {
	close(p.stopChan)
	p.wg.Wait()
}

// sweep re-syncs every user with linked accounts
func (p *Poller) sweep(ctx context.Context) {
	userIDs, err := p.users.ListUserIDs(ctx)
	if err != nil {
		slog.Error("Failed to list users for refresh sweep", "error", err)
		return
	}

	if len(userIDs) == 0 {
		slog.Debug("No linked users to refresh")
		return
	}

	slog.Debug("Refreshing linked users", "count", len(userIDs))

	for _, userID := range userIDs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := p.service.SyncUser(ctx, p.guildID, userID)
		switch {
		case errors.Is(err, usersync.ErrNoAccounts):
			// Unlinked between the listing and the sync; nothing to do.
		case err != nil:
			slog.Error("Background refresh failed", "userID", userID, "error", err)
		case !result.Delta.Empty():
			slog.Info("Background refresh updated roles", "userID", userID,
				"added", len(result.Delta.Added), "removed", len(result.Delta.Removed))
		}
	}
}
