package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	riotapi "github.com/tristan-derez/match-collector/internal/riot-api"
)

var indexHeader = []string{"match_id", "tier", "division"}

// CSVIndex appends one row per stored match. Rows are never rewritten.
type CSVIndex struct {
	mu   sync.Mutex
	path string
}

func NewCSVIndex(path string) *CSVIndex {
	return &CSVIndex{path: path}
}

// Append writes (matchID, tier, division), preceded by the header when the
// file is being created.
func (i *CSVIndex) Append(_ context.Context, matchID string, b riotapi.Bucket) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	_, err := os.Stat(i.path)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat index: %w", err)
	}

	f, err := os.OpenFile(i.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if !exists {
		if err := w.Write(indexHeader); err != nil {
			return fmt.Errorf("write index header: %w", err)
		}
	}
	if err := w.Write([]string{matchID, b.Tier, b.Division}); err != nil {
		return fmt.Errorf("write index row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush index: %w", err)
	}

	return f.Close()
}
