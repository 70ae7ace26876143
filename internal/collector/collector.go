package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	riotapi "github.com/tristan-derez/match-collector/internal/riot-api"
	"github.com/tristan-derez/match-collector/internal/storage"
	"github.com/tristan-derez/match-collector/internal/utils"
)

// LadderAPI is the part of the Riot API the collection loop walks.
type LadderAPI interface {
	GetLeagueEntries(ctx context.Context, tier, division string, page int) ([]riotapi.LeagueEntry, error)
	GetRankedSoloMatchIDs(ctx context.Context, puuid string, count int) ([]string, error)
}

// Archive stores matches at most once per bucket.
type Archive interface {
	Has(ctx context.Context, b riotapi.Bucket, matchID string) (bool, error)
	FetchAndStore(ctx context.Context, b riotapi.Bucket, matchID string) (bool, error)
}

// Notifier receives progress reports. Delivery failures are the notifier's problem.
type Notifier interface {
	BucketComplete(ctx context.Context, result BucketResult)
	RunComplete(ctx context.Context, summary Summary)
}

type nopNotifier struct{}

func (nopNotifier) BucketComplete(context.Context, BucketResult) {}
func (nopNotifier) RunComplete(context.Context, Summary)         {}

// Config tunes a collection run.
type Config struct {
	// Quota is the number of new matches wanted per bucket.
	Quota int
	// MatchIDsPerPlayer is how many recent match ids are requested per player.
	MatchIDsPerPlayer int
	// MatchesPerPlayer is how many of those ids are considered.
	MatchesPerPlayer int
	// PageDelay is the pause between two ladder pages of a bucket.
	PageDelay time.Duration
	Tiers     []string
	// StopAfterTopTier ends the run once division I of the highest tier is done.
	// When false, buckets whose listing failed are revisited for up to MaxPasses passes.
	StopAfterTopTier bool
	MaxPasses        int
}

func DefaultConfig() Config {
	return Config{
		Quota:             100,
		MatchIDsPerPlayer: 10,
		MatchesPerPlayer:  5,
		PageDelay:         500 * time.Millisecond,
		Tiers:             riotapi.DefaultTiers,
		StopAfterTopTier:  true,
		MaxPasses:         3,
	}
}

// BucketResult describes how a bucket's collection ended.
type BucketResult struct {
	Bucket    riotapi.Bucket
	Quota     int
	Collected int
	FirstPage int
	// LastPage is the last page fully processed, 0 when none was.
	LastPage int
	// Exhausted is set when the ladder returned an empty page.
	Exhausted bool
	// Failed is set when the listing call failed before the quota was met.
	Failed   bool
	Duration time.Duration
}

// Summary reports a whole run.
type Summary struct {
	RunID     string
	Buckets   []BucketResult
	Collected int
	Duration  time.Duration
	// StoppedAfterTopTier is set when the run ended on the top tier cutoff.
	StoppedAfterTopTier bool
}

// Collector drives the tier/division/page/player/match walk. It owns all
// per-run state: checkpoints and the PUUID cache.
type Collector struct {
	api         LadderAPI
	cache       *PUUIDCache
	checkpoints storage.CheckpointStore
	archive     Archive
	notifier    Notifier
	cfg         Config
	logger      zerolog.Logger
	sleep       func(ctx context.Context, d time.Duration) error

	runID string
	state storage.Checkpoints
}

func New(api LadderAPI, cache *PUUIDCache, checkpoints storage.CheckpointStore, archive Archive, cfg Config, logger zerolog.Logger) *Collector {
	defaults := DefaultConfig()
	if cfg.MatchIDsPerPlayer <= 0 {
		cfg.MatchIDsPerPlayer = defaults.MatchIDsPerPlayer
	}
	if cfg.MatchesPerPlayer <= 0 {
		cfg.MatchesPerPlayer = defaults.MatchesPerPlayer
	}
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = defaults.Tiers
	}
	if cfg.MaxPasses <= 0 {
		cfg.MaxPasses = 1
	}

	return &Collector{
		api:         api,
		cache:       cache,
		checkpoints: checkpoints,
		archive:     archive,
		notifier:    nopNotifier{},
		cfg:         cfg,
		logger:      logger,
		sleep:       utils.SleepContext,
	}
}

// WithNotifier sets where bucket and run reports are sent.
func (c *Collector) WithNotifier(n Notifier) *Collector {
	if n != nil {
		c.notifier = n
	}
	return c
}

// WithSleep replaces the pause used between pages, mainly for tests.
func (c *Collector) WithSleep(sleep func(context.Context, time.Duration) error) *Collector {
	c.sleep = sleep
	return c
}

// WithRunID tags the summary with an identifier.
func (c *Collector) WithRunID(id string) *Collector {
	c.runID = id
	return c
}

// Run collects up to the quota of new matches in every planned bucket.
// The returned summary is valid even when an error ends the run early.
func (c *Collector) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: c.runID}

	if c.cfg.Quota <= 0 {
		return summary, fmt.Errorf("quota must be positive, got %d", c.cfg.Quota)
	}

	state, err := c.checkpoints.Load(ctx)
	if err != nil {
		return summary, fmt.Errorf("load checkpoints: %w", err)
	}
	c.state = state

	plan := Plan(c.cfg.Tiers)
	collected := make(map[riotapi.Bucket]int, len(plan))
	pending := plan

	finish := func() {
		summary.Duration = time.Since(start)
		c.logger.Info().
			Int("collected", summary.Collected).
			Int("buckets", len(summary.Buckets)).
			Str("elapsed", utils.FormatDuration(summary.Duration)).
			Msg("Collection run finished")
		c.notifier.RunComplete(ctx, *summary)
	}

	for pass := 1; pass <= c.cfg.MaxPasses && len(pending) > 0; pass++ {
		var retry []riotapi.Bucket

		for _, b := range pending {
			result, err := c.collectBucket(ctx, b, c.cfg.Quota-collected[b])
			collected[b] += result.Collected
			summary.Collected += result.Collected
			summary.Buckets = append(summary.Buckets, result)
			if err != nil {
				summary.Duration = time.Since(start)
				return summary, err
			}

			c.notifier.BucketComplete(ctx, result)
			if result.Failed {
				retry = append(retry, b)
			}

			if c.cfg.StopAfterTopTier && isTopTierFinal(plan, b) {
				c.logger.Info().Stringer("bucket", b).
					Msgf("Finished processing %s. Stopping further processing.", b)
				summary.StoppedAfterTopTier = true
				finish()
				return summary, nil
			}
		}

		pending = retry
		if len(pending) > 0 && pass < c.cfg.MaxPasses {
			c.logger.Info().Int("buckets", len(pending)).Int("pass", pass+1).Msg("Revisiting buckets whose listing failed")
		}
	}

	finish()
	return summary, nil
}

// collectBucket pages through one bucket until quota new matches are stored
// or the ladder stops returning players.
func (c *Collector) collectBucket(ctx context.Context, b riotapi.Bucket, quota int) (BucketResult, error) {
	start := time.Now()
	page := c.state.Page(b)
	result := BucketResult{Bucket: b, Quota: quota, FirstPage: page}
	log := c.logger.With().Str("tier", b.Tier).Str("division", b.Division).Logger()

	log.Info().Int("page", page).Int("quota", quota).Msgf("Processing %s", b)

	for result.Collected < quota {
		players, err := c.api.GetLeagueEntries(ctx, b.Tier, b.Division, page)
		if err != nil {
			if ctx.Err() != nil {
				result.Duration = time.Since(start)
				return result, ctx.Err()
			}
			log.Warn().Err(err).Int("page", page).Msg("Ladder page unavailable, ending bucket")
			result.Failed = true
			break
		}
		if len(players) == 0 {
			log.Info().Int("page", page).Msg("No more players available")
			result.Exhausted = true
			break
		}

		stored, err := c.processPage(ctx, b, players, result.Collected, quota, log)
		result.Collected += stored
		if err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		c.state.Set(b, page)
		if err := c.checkpoints.Save(ctx, c.state); err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("save checkpoint for %s: %w", b, err)
		}
		result.LastPage = page
		pagesTotal.WithLabelValues(b.Tier, b.Division).Inc()
		log.Info().Int("page", page).Int("players", len(players)).Int("collected", result.Collected).
			Msgf("Page %d done, %d/%d collected", page, result.Collected, quota)

		page++
		if result.Collected < quota && c.cfg.PageDelay > 0 {
			if err := c.sleep(ctx, c.cfg.PageDelay); err != nil {
				result.Duration = time.Since(start)
				return result, err
			}
		}
	}

	switch {
	case result.Collected >= quota:
		bucketsCompletedTotal.WithLabelValues("quota").Inc()
	case result.Failed:
		bucketsCompletedTotal.WithLabelValues("failed").Inc()
	default:
		bucketsCompletedTotal.WithLabelValues("exhausted").Inc()
	}

	result.Duration = time.Since(start)
	return result, nil
}

// processPage walks the players of one ladder page and returns how many new
// matches were stored, stopping once already+stored reaches quota.
func (c *Collector) processPage(ctx context.Context, b riotapi.Bucket, players []riotapi.LeagueEntry, already, quota int, log zerolog.Logger) (int, error) {
	stored := 0
	remaining := quota - already

	for _, player := range players {
		if stored >= remaining {
			break
		}

		puuid, ok := c.resolvePlayer(ctx, player)
		if ctx.Err() != nil {
			return stored, ctx.Err()
		}
		if !ok {
			continue
		}

		matchIDs, err := c.api.GetRankedSoloMatchIDs(ctx, puuid, c.cfg.MatchIDsPerPlayer)
		if err != nil {
			if ctx.Err() != nil {
				return stored, ctx.Err()
			}
			reason := "match_ids_error"
			if riotapi.IsNotFound(err) {
				reason = "match_ids_not_found"
			}
			playersSkippedTotal.WithLabelValues(reason).Inc()
			continue
		}
		if len(matchIDs) > c.cfg.MatchesPerPlayer {
			matchIDs = matchIDs[:c.cfg.MatchesPerPlayer]
		}

		for _, matchID := range matchIDs {
			if stored >= remaining {
				break
			}

			has, err := c.archive.Has(ctx, b, matchID)
			if err != nil {
				return stored, fmt.Errorf("check match %s: %w", matchID, err)
			}
			if has {
				continue
			}

			ok, err := c.archive.FetchAndStore(ctx, b, matchID)
			if err != nil {
				return stored, err
			}
			if ok {
				stored++
				log.Info().Str("match_id", matchID).Msgf("Collected %d/%d for %s", already+stored, quota, b)
			}
		}
	}

	return stored, nil
}

// resolvePlayer returns the PUUID of a ladder entry. Entries that already
// carry a PUUID need no lookup.
func (c *Collector) resolvePlayer(ctx context.Context, player riotapi.LeagueEntry) (string, bool) {
	if player.SummonerID == "" {
		if player.PUUID == "" {
			playersSkippedTotal.WithLabelValues("no_id").Inc()
			return "", false
		}
		return player.PUUID, true
	}

	puuid, ok := c.cache.Resolve(ctx, player.SummonerID)
	if !ok {
		playersSkippedTotal.WithLabelValues("no_puuid").Inc()
	}
	return puuid, ok
}
