package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/p-estor/ranksync-bot/internal/rank"
)

// ErrPartial means one of the two mutation batches failed; the
// returned delta reflects what was attempted, not necessarily applied.
var ErrPartial = errors.New("role update partially applied")

// Gateway is the platform's role-membership surface. Both mutation
// calls take batches: the platform rate-limits per mutation call, not
// per role.
type Gateway interface {
	MemberRoles(ctx context.Context, guildID, userID string) ([]string, error)
	AddRoles(ctx context.Context, guildID, userID string, roleIDs []string) error
	RemoveRoles(ctx context.Context, guildID, userID string, roleIDs []string) error
}

// Delta is the set of mutations a reconciliation attempted
type Delta struct {
	Added   []string
	Removed []string
}

// Empty reports whether the reconciliation changed nothing
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Reconciler makes a member's role membership, restricted to the
// managed role universe, equal a desired role set. It holds no
// per-user state, so concurrent runs for different users are safe; a
// repeated run with the same desired set is a no-op.
type Reconciler struct {
	gateway Gateway
	managed rank.RoleSet
}

// NewReconciler builds a reconciler over the managed role universe.
// Roles outside the universe are never touched.
func NewReconciler(gateway Gateway, managed rank.RoleSet) *Reconciler {
	return &Reconciler{gateway: gateway, managed: managed}
}

// Reconcile brings the member's managed roles in line with desired.
// An explicitly empty desired set strips every managed role.
//
// Membership is re-read from the platform at the start of every run,
// since a cached view could be stale relative to a previous run, and
// again between the removal and addition batches, since the two are not
// atomic at the platform boundary. Removals are applied before
// additions; a failed removal batch does not block the addition batch.
func (r *Reconciler) Reconcile(ctx context.Context, guildID, userID string, desired rank.RoleSet) (Delta, error) {
	current, err := r.gateway.MemberRoles(ctx, guildID, userID)
	if err != nil {
		return Delta{}, fmt.Errorf("failed to read member roles: %w", err)
	}

	toRemove := r.removals(current, desired)

	var removeErr error
	if len(toRemove) > 0 {
		if removeErr = r.gateway.RemoveRoles(ctx, guildID, userID, toRemove); removeErr != nil {
			slog.Error("Failed to remove roles", "userID", userID, "roles", toRemove, "error", removeErr)
		}
	}

	postRemoval := current
	if len(toRemove) > 0 && len(desired) > 0 {
		// Re-read so additions are computed against the post-removal
		// state; fall back to the derived view if the read fails.
		if fresh, err := r.gateway.MemberRoles(ctx, guildID, userID); err == nil {
			postRemoval = fresh
		} else {
			slog.Warn("Failed to re-read member roles after removal", "userID", userID, "error", err)
			postRemoval = subtract(current, toRemove)
		}
	}

	toAdd := additions(postRemoval, desired)

	var addErr error
	if len(toAdd) > 0 {
		if addErr = r.gateway.AddRoles(ctx, guildID, userID, toAdd); addErr != nil {
			slog.Error("Failed to add roles", "userID", userID, "roles", toAdd, "error", addErr)
		}
	}

	delta := Delta{Added: toAdd, Removed: toRemove}
	if removeErr != nil || addErr != nil {
		return delta, fmt.Errorf("%w: %s", ErrPartial, errors.Join(removeErr, addErr))
	}
	return delta, nil
}

// removals selects held managed roles that are no longer desired
func (r *Reconciler) removals(current []string, desired rank.RoleSet) []string {
	var out []string
	for _, id := range current {
		if r.managed.Contains(id) && !desired.Contains(id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// additions selects desired roles the member does not hold
func additions(current []string, desired rank.RoleSet) []string {
	held := rank.NewRoleSet(current...)
	var out []string
	for id := range desired {
		if !held.Contains(id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func subtract(current, removed []string) []string {
	gone := rank.NewRoleSet(removed...)
	out := make([]string, 0, len(current))
	for _, id := range current {
		if !gone.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}
