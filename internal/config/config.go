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

	// Riot API
	RiotAPIKey string
	RiotRegion string

	// Database
	DatabasePath string

	// Directory holding the greeting sound files
	SoundsDir string

	// Periodic clash checking
	CheckIntervalSeconds int

	// Singleton lock refresh window
	LockRefreshSeconds int

	// When true, reaction-based registration is only handled by the
	// elected leader instance. Off by default so redundant instances
	// keep handling reactions even while one of them owns the
	// periodic jobs.
	GateReactions bool

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DiscordToken: os.Getenv("DISCORD_BOT_TOKEN"),
		RiotAPIKey:   os.Getenv("RIOT_API_KEY"),
		RiotRegion:   getEnvOrDefault("RIOT_REGION", "eun1"),
		DatabasePath: getEnvOrDefault("DATABASE_PATH", "./data/bot.db"),
		SoundsDir:    getEnvOrDefault("SOUNDS_DIR", "./assets"),
		LogLevel:     getEnvOrDefault("LOG_LEVEL", "info"),
	}

	check, err := strconv.Atoi(getEnvOrDefault("CHECK_INTERVAL_SECONDS", "240"))
	if err != nil {
		return nil, fmt.Errorf("invalid CHECK_INTERVAL_SECONDS: %w", err)
	}
	cfg.CheckIntervalSeconds = check

	refresh, err := strconv.Atoi(getEnvOrDefault("LOCK_REFRESH_SECONDS", "90"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOCK_REFRESH_SECONDS: %w", err)
	}
	cfg.LockRefreshSeconds = refresh

	gate, err := strconv.ParseBool(getEnvOrDefault("GATE_REACTIONS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid GATE_REACTIONS: %w", err)
	}
	cfg.GateReactions = gate

	// Validate required fields
	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}
	if cfg.RiotAPIKey == "" {
		return nil, fmt.Errorf("RIOT_API_KEY is required")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
