package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	DiscordToken string
	GuildID      string

	// Riot API (Riot issues the TFT key separately)
	RiotAPIKey    string
	RiotAPIKeyTFT string

	// Riot routing
	Platform string // platform route, e.g. "euw1"
	Region   string // regional route, e.g. "europe"

	// Database
	DatabasePath string

	// Role bindings
	RoleBindingsPath string

	// Background refresh
	RefreshIntervalSeconds int

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DiscordToken:     os.Getenv("DISCORD_BOT_TOKEN"),
		GuildID:          os.Getenv("GUILD_ID"),
		RiotAPIKey:       os.Getenv("RIOT_API_KEY"),
		RiotAPIKeyTFT:    os.Getenv("RIOT_API_KEY_TFT"),
		Platform:         getEnvOrDefault("RIOT_PLATFORM", "euw1"),
		Region:           getEnvOrDefault("RIOT_REGION", "europe"),
		DatabasePath:     getEnvOrDefault("DATABASE_PATH", "./data/accounts.db"),
		RoleBindingsPath: getEnvOrDefault("ROLE_BINDINGS_PATH", "./config/roles.yaml"),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
	}

	refreshStr := getEnvOrDefault("REFRESH_INTERVAL_SECONDS", "3600")
	refresh, err := strconv.Atoi(refreshStr)
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL_SECONDS: %w", err)
	}
	cfg.RefreshIntervalSeconds = refresh

	// Validate required fields
	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}
	if cfg.GuildID == "" {
		return nil, fmt.Errorf("GUILD_ID is required")
	}
	if cfg.RiotAPIKey == "" {
		return nil, fmt.Errorf("RIOT_API_KEY is required")
	}
	if cfg.RiotAPIKeyTFT == "" {
		// Fall back to the main key; TFT endpoints accept it on most accounts
		cfg.RiotAPIKeyTFT = cfg.RiotAPIKey
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
