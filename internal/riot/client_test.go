package riot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// newTestClient points a client at a local test server
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &Client{
		apiKey:      "test-key",
		httpClient:  &http.Client{Timeout: time.Second},
		limiter:     rate.NewLimiter(rate.Inf, 1),
		platformURL: server.URL,
		regionURL:   server.URL,
	}
}

func TestClient_SendsAPIKeyHeader(t *testing.T) {
	var gotToken string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Riot-Token")
		w.Write([]byte(`[]`))
	}))

	_, err := c.GetLeagueEntriesByPUUID(context.Background(), "puuid-1")
	require.NoError(t, err)
	require.Equal(t, "test-key", gotToken)
}

func TestClient_DecodesLeagueEntries(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/lol/league/v4/entries/by-puuid/puuid-1", r.URL.Path)
		w.Write([]byte(`[
			{"queueType": "RANKED_SOLO_5x5", "tier": "GOLD", "rank": "II", "leaguePoints": 42, "wins": 10, "losses": 5},
			{"queueType": "RANKED_FLEX_SR", "tier": "SILVER", "rank": "I", "leaguePoints": 12, "wins": 3, "losses": 4}
		]`))
	}))

	entries, err := c.GetLeagueEntriesByPUUID(context.Background(), "puuid-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "GOLD", entries[0].Tier)
	require.Equal(t, "RANKED_FLEX_SR", entries[1].QueueType)
}

func TestClient_StatusErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "not found", status: http.StatusNotFound, wantErr: ErrNotFound},
		{name: "bad key", status: http.StatusUnauthorized, wantErr: ErrUnauthorized},
		{name: "forbidden key", status: http.StatusForbidden, wantErr: ErrUnauthorized},
		{name: "throttled", status: http.StatusTooManyRequests, wantErr: ErrRateLimited},
		{name: "server error", status: http.StatusInternalServerError, wantErr: ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			_, err := c.GetLeagueEntriesByPUUID(context.Background(), "puuid-1")
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGetAccountByRiotID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/riot/account/v1/accounts/by-riot-id/Faker/EUW", r.URL.Path)
		w.Write([]byte(`{"puuid": "puuid-1", "gameName": "Faker", "tagLine": "EUW"}`))
	}))

	account, err := c.GetAccountByRiotID(context.Background(), "Faker", "EUW")
	require.NoError(t, err)
	require.Equal(t, "puuid-1", account.PUUID)
	require.Equal(t, "Faker", account.GameName)
}

func TestProfileIconID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "summoner-1", "puuid": "puuid-1", "profileIconId": 23, "summonerLevel": 300}`))
	}))

	iconID, err := c.ProfileIconID(context.Background(), "puuid-1")
	require.NoError(t, err)
	require.Equal(t, 23, iconID)
}
