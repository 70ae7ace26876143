package collector

import (
	"context"

	"github.com/rs/zerolog"
	riotapi "github.com/tristan-derez/match-collector/internal/riot-api"
)

// SummonerLookup resolves an encrypted summoner id to its account.
type SummonerLookup interface {
	GetSummoner(ctx context.Context, summonerID string) (*riotapi.Summoner, error)
}

// PUUIDCache memoizes summoner id -> PUUID for the lifetime of the process.
// Failed lookups are cached as well so a broken id costs a single request per run.
type PUUIDCache struct {
	lookup SummonerLookup
	cache  map[string]string
	logger zerolog.Logger
}

func NewPUUIDCache(lookup SummonerLookup, logger zerolog.Logger) *PUUIDCache {
	return &PUUIDCache{
		lookup: lookup,
		cache:  make(map[string]string),
		logger: logger,
	}
}

// Resolve returns the PUUID for summonerID and whether one is known.
func (c *PUUIDCache) Resolve(ctx context.Context, summonerID string) (string, bool) {
	if puuid, ok := c.cache[summonerID]; ok {
		return puuid, puuid != ""
	}

	var puuid string
	summoner, err := c.lookup.GetSummoner(ctx, summonerID)
	if err != nil {
		// An interrupted lookup says nothing about the summoner.
		if ctx.Err() != nil {
			return "", false
		}
		if riotapi.IsNotFound(err) {
			c.logger.Debug().Str("summoner_id", summonerID).Msg("Summoner not found")
		} else {
			c.logger.Warn().Err(err).Str("summoner_id", summonerID).Msg("Summoner lookup failed, skipping for this run")
		}
	} else if summoner != nil {
		puuid = summoner.SummonerPUUID
	}

	c.cache[summonerID] = puuid
	return puuid, puuid != ""
}

// Len reports how many summoner ids have been resolved, successfully or not.
func (c *PUUIDCache) Len() int {
	return len(c.cache)
}
