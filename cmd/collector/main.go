package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/tristan-derez/match-collector/internal/collector"
	"github.com/tristan-derez/match-collector/internal/config"
	"github.com/tristan-derez/match-collector/internal/logging"
	"github.com/tristan-derez/match-collector/internal/notify"
	riotapi "github.com/tristan-derez/match-collector/internal/riot-api"
	"github.com/tristan-derez/match-collector/internal/storage"
	"github.com/tristan-derez/match-collector/internal/utils"
)

func main() {
	quota := flag.Int("quota", 0, "New matches to collect per tier/division (prompted when unset)")
	tuningPath := flag.String("config", "", "YAML tuning file, overrides COLLECTOR_CONFIG")
	dataDir := flag.String("data-dir", "", "Directory for matches, checkpoints and logs, overrides DATA_DIR")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *tuningPath != "" {
		cfg.TuningPath = *tuningPath
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create data directory: %v\n", err)
		os.Exit(1)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.FilePath = filepath.Join(cfg.DataDir, logging.DefaultFile)
	logger, logFile, err := logging.Setup(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg, *quota, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Collection stopped")
	}
	logFile.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, quotaFlag int, logger zerolog.Logger) error {
	tuning, err := config.LoadTuning(cfg.TuningPath)
	if err != nil {
		return fmt.Errorf("failed to load tuning file: %w", err)
	}

	quota, err := resolveQuota(quotaFlag, cfg.Quota, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger = logging.Tag("run_id", runID)

	ctx, stop := collector.SetupSignalHandler(context.Background(), logger)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	client := riotapi.NewClient(riotapi.Options{
		APIKey:           cfg.RiotAPIKey,
		Region:           cfg.RiotAPIRegion,
		RegionalEndpoint: cfg.RiotRegionalEndpoint,
		Limiter: riotapi.MultiLimiter{
			riotapi.NewSlidingWindow(tuning.RateLimit.MaxRequests, tuning.Window(), logging.NewLogger("ratelimit")),
			riotapi.NewRateLimiter(tuning.RateLimit.PerSecond, tuning.RateLimit.Burst),
		},
		Logger: logging.NewLogger("riot-api"),
	})

	store, checkpoints, closeStore, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	archive := storage.NewMatchArchive(store, storage.NewCSVIndex(cfg.IndexPath()), client, logging.NewLogger("archive"))

	c := collector.New(
		client,
		collector.NewPUUIDCache(client, logging.NewLogger("puuid-cache")),
		checkpoints,
		archive,
		collector.Config{
			Quota:             quota,
			MatchIDsPerPlayer: tuning.Collection.MatchIDsPerPlayer,
			MatchesPerPlayer:  tuning.Collection.MatchesPerPlayer,
			PageDelay:         tuning.PageDelay(),
			Tiers:             tuning.Collection.Tiers,
			StopAfterTopTier:  *tuning.Collection.StopAfterTopTier,
			MaxPasses:         tuning.Collection.MaxPasses,
		},
		logging.NewLogger("collector"),
	).WithRunID(runID)

	if cfg.NotificationsEnabled() {
		discord, err := notify.NewDiscord(cfg.DiscordToken, cfg.DiscordChannelID, logging.NewLogger("notify"))
		if err != nil {
			return err
		}
		c.WithNotifier(discord)
	}

	logger.Info().
		Int("quota", quota).
		Str("backend", cfg.StorageBackend).
		Str("data_dir", cfg.DataDir).
		Msg("Starting collection")

	summary, err := c.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("interrupted after %d new matches in %s, progress saved in checkpoints: %w",
				summary.Collected, utils.FormatDuration(summary.Duration), err)
		}
		return err
	}

	return nil
}

// openStorage returns the match store and checkpoint store for the configured backend.
func openStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (storage.MatchStore, storage.CheckpointStore, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		db, err := storage.New(ctx, cfg.DatabaseURL, logging.NewLogger("storage"))
		if err != nil {
			return nil, nil, nil, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("Error closing database")
			}
		}
		return db, db, closeDB, nil
	default:
		return storage.NewFileStore(cfg.MatchesDir()), storage.NewFileCheckpointStore(cfg.CheckpointPath()), func() {}, nil
	}
}

func serveMetrics(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server stopped")
		}
	}()

	return srv
}
