package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	riotapi "github.com/tristan-derez/match-collector/internal/riot-api"
	"github.com/tristan-derez/match-collector/internal/utils"
)

//go:embed sql/init_db.sql
var initDBSQL string

// Storage is the PostgreSQL backend. It serves as both MatchStore and
// CheckpointStore; each matches row doubles as its index entry.
type Storage struct {
	db     *sql.DB
	logger zerolog.Logger
}

// New creates and initializes a new Storage instance connected to the specified PostgreSQL database
func New(ctx context.Context, databaseURL string, logger zerolog.Logger) (*Storage, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	err = utils.RetryWithBackoff(ctx, func() error {
		return db.PingContext(ctx)
	}, utils.DefaultRetryConfig)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	storage := &Storage{db: db, logger: logger}
	if err := storage.initDB(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	return storage, nil
}

func (s *Storage) initDB(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, initDBSQL)
	if err != nil {
		return fmt.Errorf("error executing init_db.sql: %w", err)
	}

	s.logger.Info().Msg("Database initialized successfully")
	return nil
}

func (s *Storage) Has(ctx context.Context, b riotapi.Bucket, matchID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, string(selectMatchExistsSQL), b.Tier, b.Division, matchID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking match: %w", err)
	}
	return exists, nil
}

func (s *Storage) PutIfAbsent(ctx context.Context, b riotapi.Bucket, matchID string, payload json.RawMessage) (bool, error) {
	res, err := s.db.ExecContext(ctx, string(insertMatchSQL), b.Tier, b.Division, matchID, string(payload))
	if err != nil {
		return false, fmt.Errorf("error inserting match: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows: %w", err)
	}
	return n == 1, nil
}

// Load reads every checkpoint row.
func (s *Storage) Load(ctx context.Context) (Checkpoints, error) {
	rows, err := s.db.QueryContext(ctx, string(selectCheckpointsSQL))
	if err != nil {
		return nil, fmt.Errorf("error loading checkpoints: %w", err)
	}
	defer rows.Close()

	checkpoints := Checkpoints{}
	for rows.Next() {
		var tier, division string
		var page int
		if err := rows.Scan(&tier, &division, &page); err != nil {
			return nil, err
		}
		checkpoints.Set(riotapi.Bucket{Tier: tier, Division: division}, page)
	}

	return checkpoints, rows.Err()
}

// Save upserts every checkpoint in one transaction.
func (s *Storage) Save(ctx context.Context, checkpoints Checkpoints) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for tier, divisions := range checkpoints {
		for division, page := range divisions {
			if _, err := tx.ExecContext(ctx, string(upsertCheckpointSQL), tier, division, page); err != nil {
				return fmt.Errorf("upsert checkpoint %s %s: %w", tier, division, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}
