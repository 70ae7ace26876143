package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

type Config struct {
	RiotAPIKey           string
	RiotAPIRegion        string
	RiotRegionalEndpoint string

	DataDir        string
	StorageBackend string
	DatabaseURL    string

	// Quota is the MATCHES_PER_BUCKET value, 0 when unset.
	Quota int

	LogLevel    string
	MetricsAddr string

	DiscordToken     string
	DiscordChannelID string

	// TuningPath points to an optional YAML tuning file.
	TuningPath string
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{
		RiotAPIKey:           os.Getenv("RIOT_API_KEY"),
		RiotAPIRegion:        getEnv("RIOT_REGION", "na1"),
		RiotRegionalEndpoint: getEnv("RIOT_REGIONAL_ENDPOINT", "americas"),
		DataDir:              getEnv("DATA_DIR", "."),
		StorageBackend:       strings.ToLower(getEnv("STORAGE_BACKEND", BackendFile)),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		MetricsAddr:          os.Getenv("METRICS_ADDR"),
		DiscordToken:         os.Getenv("DISCORD_TOKEN"),
		DiscordChannelID:     os.Getenv("DISCORD_CHANNEL_ID"),
		TuningPath:           os.Getenv("COLLECTOR_CONFIG"),
	}

	if raw := os.Getenv("MATCHES_PER_BUCKET"); raw != "" {
		quota, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || quota <= 0 {
			return nil, fmt.Errorf("MATCHES_PER_BUCKET must be a positive integer, got %q", raw)
		}
		config.Quota = quota
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	requiredVars := map[string]*string{
		"RIOT_API_KEY": &c.RiotAPIKey,
	}
	if c.StorageBackend == BackendPostgres {
		requiredVars["DATABASE_URL"] = &c.DatabaseURL
	}

	var missingVars []string

	for envVar, value := range requiredVars {
		if *value == "" {
			missingVars = append(missingVars, envVar)
		}
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	if c.StorageBackend != BackendFile && c.StorageBackend != BackendPostgres {
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendFile, BackendPostgres, c.StorageBackend)
	}

	if (c.DiscordToken == "") != (c.DiscordChannelID == "") {
		return fmt.Errorf("DISCORD_TOKEN and DISCORD_CHANNEL_ID must be set together")
	}

	return nil
}

// NotificationsEnabled reports whether Discord reports are configured.
func (c *Config) NotificationsEnabled() bool {
	return c.DiscordToken != "" && c.DiscordChannelID != ""
}

func (c *Config) MatchesDir() string { return filepath.Join(c.DataDir, "matches") }
func (c *Config) CheckpointPath() string { return filepath.Join(c.DataDir, "state.json") }
func (c *Config) IndexPath() string { return filepath.Join(c.DataDir, "match_ids.csv") }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
