package riot

import (
	"context"
	"fmt"
	"net/url"
)

// Account represents a Riot account from the Account-V1 API
type Account struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// GetAccountByRiotID resolves a Riot ID (game name + tag line) to an
// account via the regional Account-V1 route.
func (c *Client) GetAccountByRiotID(ctx context.Context, gameName, tagLine string) (*Account, error) {
	endpoint := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
		c.regionURL, url.PathEscape(gameName), url.PathEscape(tagLine))

	var account Account
	if err := c.get(ctx, endpoint, &account); err != nil {
		return nil, fmt.Errorf("failed to get account by Riot ID: %w", err)
	}

	return &account, nil
}
