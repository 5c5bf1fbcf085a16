package rank

import "context"

// TierStatus tags the per-ladder outcome of a rank fetch.
type TierStatus int

const (
	// TierRanked means the upstream returned a tier for the ladder
	// (UNRANKED when the account has no entry in that queue).
	TierRanked TierStatus = iota
	// TierUnavailable means the fetch for this ladder failed this
	// cycle; the caller should fall back to the stored value.
	TierUnavailable
	// TierNotApplicable means the ladder cannot be queried for this
	// account (e.g. no TFT account id is known).
	TierNotApplicable
)

// TierResult is one ladder's fetch outcome
type TierResult struct {
	Status TierStatus
	Tier   string
}

// Ranked builds a successful result with a canonicalized tier
func Ranked(tier string) TierResult {
	return TierResult{Status: TierRanked, Tier: CanonicalTier(tier)}
}

// Unavailable marks a ladder whose fetch failed this cycle
func Unavailable() TierResult {
	return TierResult{Status: TierUnavailable}
}

// NotApplicable marks a ladder that cannot be queried for the account
func NotApplicable() TierResult {
	return TierResult{Status: TierNotApplicable}
}

// Fetcher retrieves current tiers for a linked account. Results are
// per-ladder; an individual ladder may fail without failing the call.
// The returned error is reserved for failures that invalidate the
// whole fetch, such as rejected API credentials.
type Fetcher interface {
	FetchTiers(ctx context.Context, puuid, tftPUUID string) (map[Ladder]TierResult, error)
}
