package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning holds the optional knobs read from the YAML file named by COLLECTOR_CONFIG.
type Tuning struct {
	RateLimit struct {
		WindowSeconds int     `yaml:"window_seconds"`
		MaxRequests   int     `yaml:"max_requests"`
		PerSecond     float64 `yaml:"per_second"`
		Burst         int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	Collection struct {
		Tiers             []string `yaml:"tiers"`
		PageDelayMillis   *int     `yaml:"page_delay_ms"`
		MatchIDsPerPlayer int      `yaml:"match_ids_per_player"`
		MatchesPerPlayer  int      `yaml:"matches_per_player"`
		StopAfterTopTier  *bool    `yaml:"stop_after_top_tier"`
		MaxPasses         int      `yaml:"max_passes"`
	} `yaml:"collection"`
}

// DefaultTuning mirrors the limits of a Riot development key.
func DefaultTuning() Tuning {
	var t Tuning
	t.applyDefaults()
	return t
}

// LoadTuning reads path, or returns the defaults when path is empty.
func LoadTuning(path string) (Tuning, error) {
	if path == "" {
		return DefaultTuning(), nil
	}

	var t Tuning
	data, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse %s: %w", path, err)
	}
	t.applyDefaults()

	if t.RateLimit.PerSecond < 0 || *t.Collection.PageDelayMillis < 0 {
		return t, fmt.Errorf("rate_limit.per_second and collection.page_delay_ms must not be negative")
	}
	if t.Collection.MatchesPerPlayer > t.Collection.MatchIDsPerPlayer {
		return t, fmt.Errorf("collection.matches_per_player (%d) exceeds match_ids_per_player (%d)",
			t.Collection.MatchesPerPlayer, t.Collection.MatchIDsPerPlayer)
	}
	return t, nil
}

func (t *Tuning) applyDefaults() {
	if t.RateLimit.WindowSeconds <= 0 {
		t.RateLimit.WindowSeconds = 120
	}
	if t.RateLimit.MaxRequests <= 0 {
		t.RateLimit.MaxRequests = 100
	}
	if t.RateLimit.PerSecond == 0 {
		t.RateLimit.PerSecond = 20
	}
	if t.RateLimit.Burst <= 0 {
		t.RateLimit.Burst = 20
	}
	if t.Collection.PageDelayMillis == nil {
		delay := 500
		t.Collection.PageDelayMillis = &delay
	}
	if t.Collection.MatchIDsPerPlayer <= 0 {
		t.Collection.MatchIDsPerPlayer = 10
	}
	if t.Collection.MatchesPerPlayer <= 0 {
		t.Collection.MatchesPerPlayer = 5
	}
	if t.Collection.StopAfterTopTier == nil {
		stop := true
		t.Collection.StopAfterTopTier = &stop
	}
	if t.Collection.MaxPasses <= 0 {
		t.Collection.MaxPasses = 3
	}
}

func (t Tuning) Window() time.Duration {
	return time.Duration(t.RateLimit.WindowSeconds) * time.Second
}

func (t Tuning) PageDelay() time.Duration {
	return time.Duration(*t.Collection.PageDelayMillis) * time.Millisecond
}
