package riot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/p-estor/ranksync-bot/internal/rank"
)

// Fetcher implements rank.Fetcher over the LoL and TFT league APIs.
// The two queue families are keyed by separate account ids and
// separate API keys, so each family fails independently.
type Fetcher struct {
	lol *Client
	tft *Client
}

// NewFetcher builds a fetcher from the two per-key clients
func NewFetcher(lol, tft *Client) *Fetcher {
	return &Fetcher{lol: lol, tft: tft}
}

// FetchTiers returns the current tier per ladder. A ladder whose fetch
// fails comes back Unavailable so the caller can fall back to its
// stored value; only rejected credentials fail the whole call.
func (f *Fetcher) FetchTiers(ctx context.Context, puuid, tftPUUID string) (map[rank.Ladder]rank.TierResult, error) {
	results := make(map[rank.Ladder]rank.TierResult, 4)

	entries, err := f.lol.GetLeagueEntriesByPUUID(ctx, puuid)
	switch {
	case errors.Is(err, ErrUnauthorized):
		return nil, err
	case err != nil:
		slog.Warn("LoL rank fetch failed", "puuid", puuid, "error", err)
		results[rank.SoloQueue] = rank.Unavailable()
		results[rank.FlexQueue] = rank.Unavailable()
	default:
		results[rank.SoloQueue] = entryResult(entries, rank.SoloQueue)
		results[rank.FlexQueue] = entryResult(entries, rank.FlexQueue)
	}

	if tftPUUID == "" {
		results[rank.TFT] = rank.NotApplicable()
		results[rank.DoubleUp] = rank.NotApplicable()
		return results, nil
	}

	tftEntries, err := f.tft.GetTFTLeagueEntriesByPUUID(ctx, tftPUUID)
	switch {
	case errors.Is(err, ErrUnauthorized):
		return nil, err
	case err != nil:
		slog.Warn("TFT rank fetch failed", "puuid", tftPUUID, "error", err)
		results[rank.TFT] = rank.Unavailable()
		results[rank.DoubleUp] = rank.Unavailable()
	default:
		results[rank.TFT] = entryResult(tftEntries, rank.TFT)
		results[rank.DoubleUp] = entryResult(tftEntries, rank.DoubleUp)
	}

	return results, nil
}

// entryResult maps a queue's league entry to a tier result; no entry
// means the account has not queued there and is UNRANKED.
func entryResult(entries []LeagueEntry, ladder rank.Ladder) rank.TierResult {
	if entry := findEntry(entries, ladder.QueueType()); entry != nil {
		return rank.Ranked(entry.Tier)
	}
	return rank.Ranked(rank.TierUnranked)
}
