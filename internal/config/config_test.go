package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("GUILD_ID", "guild")
	t.Setenv("RIOT_API_KEY", "riot-key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "euw1", cfg.Platform)
	require.Equal(t, "europe", cfg.Region)
	require.Equal(t, "./data/accounts.db", cfg.DatabasePath)
	require.Equal(t, "./config/roles.yaml", cfg.RoleBindingsPath)
	require.Equal(t, 3600, cfg.RefreshIntervalSeconds)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_TFTKeyFallsBackToMainKey(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "riot-key", cfg.RiotAPIKeyTFT)

	t.Setenv("RIOT_API_KEY_TFT", "tft-key")
	cfg, err = Load()
	require.NoError(t, err)
	require.Equal(t, "tft-key", cfg.RiotAPIKeyTFT)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{name: "missing token", unset: "DISCORD_BOT_TOKEN"},
		{name: "missing guild", unset: "GUILD_ID"},
		{name: "missing riot key", unset: "RIOT_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_InvalidRefreshInterval(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REFRESH_INTERVAL_SECONDS", "soon")

	_, err := Load()
	require.Error(t, err)
}
