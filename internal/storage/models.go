package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/p-estor/ranksync-bot/internal/rank"
)

// MaxAccounts is the per-user cap on linked accounts
const MaxAccounts = 3

// ErrLimitExceeded is returned by Upsert when a user already owns
// MaxAccounts linked accounts and tries to link another.
var ErrLimitExceeded = errors.New("account limit exceeded")

// LinkedAccount is one verified Riot account owned by a Discord user.
// PUUID is the primary key: an account can belong to at most one user
// at a time.
type LinkedAccount struct {
	UserID       string // owning Discord user ID
	PUUID        string
	TFTPUUID     string // TFT endpoints key accounts separately; empty if unknown
	SummonerName string
	TagLine      string
	RankSoloQ    string
	RankFlex     string
	RankTFT      string
	RankDoubleUp string
	LastUpdated  time.Time
}

// RiotID returns the display identity, e.g. "Faker#EUW"
func (a *LinkedAccount) RiotID() string {
	return fmt.Sprintf("%s#%s", a.SummonerName, a.TagLine)
}

// Tiers returns the stored tier per ladder
func (a *LinkedAccount) Tiers() rank.TierSet {
	return rank.TierSet{
		rank.SoloQueue: a.RankSoloQ,
		rank.FlexQueue: a.RankFlex,
		rank.TFT:       a.RankTFT,
		rank.DoubleUp:  a.RankDoubleUp,
	}
}

// SetTier updates the stored tier for one ladder
func (a *LinkedAccount) SetTier(ladder rank.Ladder, tier string) {
	switch ladder {
	case rank.SoloQueue:
		a.RankSoloQ = tier
	case rank.FlexQueue:
		a.RankFlex = tier
	case rank.TFT:
		a.RankTFT = tier
	case rank.DoubleUp:
		a.RankDoubleUp = tier
	}
}
