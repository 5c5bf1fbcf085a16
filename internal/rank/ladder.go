package rank

import "strings"

// Ladder identifies one of the independent ranked queues a linked
// account can hold a tier in.
type Ladder string

const (
	SoloQueue Ladder = "soloq"
	FlexQueue Ladder = "flex"
	TFT       Ladder = "tft"
	DoubleUp  Ladder = "doubleup"
)

// Ladders returns every ladder in display order.
func Ladders() []Ladder {
	return []Ladder{SoloQueue, FlexQueue, TFT, DoubleUp}
}

// DisplayName returns the human-readable ladder name used in messages
func (l Ladder) DisplayName() string {
	switch l {
	case SoloQueue:
		return "SoloQ"
	case FlexQueue:
		return "Flex"
	case TFT:
		return "TFT"
	case DoubleUp:
		return "Double Up"
	default:
		return string(l)
	}
}

// QueueType returns the Riot queueType token for this ladder
func (l Ladder) QueueType() string {
	switch l {
	case SoloQueue:
		return "RANKED_SOLO_5x5"
	case FlexQueue:
		return "RANKED_FLEX_SR"
	case TFT:
		return "RANKED_TFT"
	case DoubleUp:
		return "RANKED_TFT_DOUBLE_UP"
	default:
		return ""
	}
}

// TierUnranked is the distinguished tier for accounts that have not
// queued in a ladder. Every ladder's tier scale includes it.
const TierUnranked = "UNRANKED"

// Tier vocabulary shared by all four ladders, lowest first.
var tiers = []string{
	"IRON", "BRONZE", "SILVER", "GOLD", "PLATINUM",
	"EMERALD", "DIAMOND", "MASTER", "GRANDMASTER", "CHALLENGER",
}

// CanonicalTier uppercases a tier token. Strings outside the known
// vocabulary are coerced to UNRANKED rather than passed through.
func CanonicalTier(tier string) string {
	t := strings.ToUpper(strings.TrimSpace(tier))
	if t == "" || t == TierUnranked {
		return TierUnranked
	}
	for _, known := range tiers {
		if t == known {
			return t
		}
	}
	return TierUnranked
}

// KnownTiers returns the ordered tier vocabulary, UNRANKED excluded.
func KnownTiers() []string {
	out := make([]string, len(tiers))
	copy(out, tiers)
	return out
}
