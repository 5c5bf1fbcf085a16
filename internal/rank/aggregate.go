package rank

import (
	"fmt"
	"log/slog"
)

// TierSet holds one account's tier per ladder.
type TierSet map[Ladder]string

// Aggregate computes the desired role set for a user from all of their
// linked accounts' tiers: the union over accounts and ladders of the
// bound role for each tier. Two accounts at different tiers in the same
// ladder contribute both roles; deduplication happens only on the final
// role-id set. A tier with no binding falls back to the ladder's
// UNRANKED role; that is a configuration gap, so it is logged rather
// than silently dropped.
//
// The second return value is a display label per contributing
// (account, ladder) pair, e.g. "GOLD (SoloQ)", in stable order.
func Aggregate(accounts []TierSet, bindings *Bindings) (RoleSet, []string) {
	desired := NewRoleSet()
	var labels []string

	for _, tiers := range accounts {
		for _, ladder := range Ladders() {
			tier := CanonicalTier(tiers[ladder])
			roleID, fellBack, ok := bindings.Resolve(ladder, tier)
			if fellBack && tier != TierUnranked {
				slog.Warn("No role bound for tier, falling back to unranked",
					"ladder", ladder, "tier", tier)
			}
			if !ok {
				// Ladder binds no role for this tier or UNRANKED;
				// it contributes nothing for this account.
				continue
			}
			desired.Add(roleID)
			labels = append(labels, fmt.Sprintf("%s (%s)", tier, ladder.DisplayName()))
		}
	}

	return desired, labels
}
