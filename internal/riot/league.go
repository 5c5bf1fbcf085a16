package riot

import (
	"context"
	"fmt"
	"net/url"
)

// LeagueEntry is one ranked queue entry from League-V4 or TFT-League-V1
type LeagueEntry struct {
	QueueType    string `json:"queueType"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
}

// GetLeagueEntriesByPUUID retrieves LoL ranked entries (SoloQ, Flex)
func (c *Client) GetLeagueEntriesByPUUID(ctx context.Context, puuid string) ([]LeagueEntry, error) {
	endpoint := fmt.Sprintf("%s/lol/league/v4/entries/by-puuid/%s",
		c.platformURL, url.PathEscape(puuid))

	var entries []LeagueEntry
	if err := c.get(ctx, endpoint, &entries); err != nil {
		return nil, fmt.Errorf("failed to get league entries: %w", err)
	}

	return entries, nil
}

// GetTFTLeagueEntriesByPUUID retrieves TFT ranked entries (TFT, Double
// Up). Requires a client built with a TFT API key.
func (c *Client) GetTFTLeagueEntriesByPUUID(ctx context.Context, puuid string) ([]LeagueEntry, error) {
	endpoint := fmt.Sprintf("%s/tft/league/v1/by-puuid/%s",
		c.platformURL, url.PathEscape(puuid))

	var entries []LeagueEntry
	if err := c.get(ctx, endpoint, &entries); err != nil {
		return nil, fmt.Errorf("failed to get TFT league entries: %w", err)
	}

	return entries, nil
}

// findEntry picks the entry for a queue type, if present
func findEntry(entries []LeagueEntry, queueType string) *LeagueEntry {
	for i := range entries {
		if entries[i].QueueType == queueType {
			return &entries[i]
		}
	}
	return nil
}
