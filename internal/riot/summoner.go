package riot

import (
	"context"
	"fmt"
	"net/url"
)

// Summoner represents summoner data from the Summoner-V4 API
type Summoner struct {
	ID            string `json:"id"`
	PUUID         string `json:"puuid"`
	ProfileIconID int    `json:"profileIconId"`
	SummonerLevel int64  `json:"summonerLevel"`
}

// GetSummonerByPUUID retrieves summoner data on the platform route
func (c *Client) GetSummonerByPUUID(ctx context.Context, puuid string) (*Summoner, error) {
	endpoint := fmt.Sprintf("%s/lol/summoner/v4/summoners/by-puuid/%s",
		c.platformURL, url.PathEscape(puuid))

	var summoner Summoner
	if err := c.get(ctx, endpoint, &summoner); err != nil {
		return nil, fmt.Errorf("failed to get summoner by PUUID: %w", err)
	}

	return &summoner, nil
}

// ProfileIconID returns the current profile icon of a summoner. The
// verification challenge compares it against the icon it issued.
func (c *Client) ProfileIconID(ctx context.Context, puuid string) (int, error) {
	summoner, err := c.GetSummonerByPUUID(ctx, puuid)
	if err != nil {
		return 0, err
	}
	return summoner.ProfileIconID, nil
}
