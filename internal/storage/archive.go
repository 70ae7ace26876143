package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	riotapi "github.com/tristan-derez/match-collector/internal/riot-api"
)

// MatchStore holds raw match payloads per bucket with put-if-absent semantics.
type MatchStore interface {
	Has(ctx context.Context, b riotapi.Bucket, matchID string) (bool, error)
	// PutIfAbsent stores payload unless the match is already present and
	// reports whether it wrote anything.
	PutIfAbsent(ctx context.Context, b riotapi.Bucket, matchID string, payload json.RawMessage) (bool, error)
}

// MatchIndex records every newly stored match id.
type MatchIndex interface {
	Append(ctx context.Context, matchID string, b riotapi.Bucket) error
}

// MatchFetcher retrieves a match payload from the API.
type MatchFetcher interface {
	GetMatchRaw(ctx context.Context, matchID string) (json.RawMessage, error)
}

// MatchArchive stores each match at most once per bucket and indexes it.
type MatchArchive struct {
	store   MatchStore
	index   MatchIndex
	fetcher MatchFetcher
	logger  zerolog.Logger
}

func NewMatchArchive(store MatchStore, index MatchIndex, fetcher MatchFetcher, logger zerolog.Logger) *MatchArchive {
	return &MatchArchive{
		store:   store,
		index:   index,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Has reports whether the match is already archived for the bucket.
func (a *MatchArchive) Has(ctx context.Context, b riotapi.Bucket, matchID string) (bool, error) {
	return a.store.Has(ctx, b, matchID)
}

// FetchAndStore downloads and archives a match unless it is already present.
// It returns true only when a new match was written. A failed API call is
// logged and reported as false with no error and leaves nothing behind; the
// error return is reserved for storage failures and cancellation.
func (a *MatchArchive) FetchAndStore(ctx context.Context, b riotapi.Bucket, matchID string) (bool, error) {
	exists, err := a.store.Has(ctx, b, matchID)
	if err != nil {
		return false, fmt.Errorf("check match %s: %w", matchID, err)
	}
	if exists {
		return false, nil
	}

	payload, err := a.fetcher.GetMatchRaw(ctx, matchID)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		a.logger.Warn().Err(err).Str("match_id", matchID).Stringer("bucket", b).Msg("Match unavailable, skipping")
		return false, nil
	}

	written, err := a.store.PutIfAbsent(ctx, b, matchID, payload)
	if err != nil {
		return false, fmt.Errorf("store match %s: %w", matchID, err)
	}
	if !written {
		return false, nil
	}

	if err := a.index.Append(ctx, matchID, b); err != nil {
		return false, fmt.Errorf("index match %s: %w", matchID, err)
	}

	matchesStoredTotal.WithLabelValues(b.Tier, b.Division).Inc()
	a.logger.Info().Str("match_id", matchID).Str("tier", b.Tier).Str("division", b.Division).
		Msgf("Saved match %s for %s", matchID, b)
	return true, nil
}
