package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	riotapi "github.com/tristan-derez/match-collector/internal/riot-api"
)

// Checkpoints maps tier -> division -> last processed page.
type Checkpoints map[string]map[string]int

// Page returns the recorded page for a bucket, or 1 when none was saved.
func (c Checkpoints) Page(b riotapi.Bucket) int {
	if page, ok := c[b.Tier][b.Division]; ok && page > 0 {
		return page
	}
	return 1
}

// Set records page for a bucket.
func (c Checkpoints) Set(b riotapi.Bucket, page int) {
	if c[b.Tier] == nil {
		c[b.Tier] = make(map[string]int)
	}
	c[b.Tier][b.Division] = page
}

// CheckpointStore persists pagination progress across runs.
type CheckpointStore interface {
	Load(ctx context.Context) (Checkpoints, error)
	Save(ctx context.Context, checkpoints Checkpoints) error
}

// FileCheckpointStore keeps every checkpoint in a single JSON document that is
// read and rewritten as a whole. The write is not atomic: a crash mid-write can
// leave a torn file, and the page in flight is reprocessed on the next run.
type FileCheckpointStore struct {
	path string
}

func NewFileCheckpointStore(path string) *FileCheckpointStore {
	return &FileCheckpointStore{path: path}
}

func (s *FileCheckpointStore) Path() string {
	return s.path
}

// Load reads the checkpoint file. A missing file yields an empty mapping.
func (s *FileCheckpointStore) Load(_ context.Context) (Checkpoints, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Checkpoints{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint file: %w", err)
	}

	checkpoints := Checkpoints{}
	if err := json.Unmarshal(data, &checkpoints); err != nil {
		return nil, fmt.Errorf("decode checkpoint file %s: %w", s.path, err)
	}
	return checkpoints, nil
}

// Save rewrites the checkpoint file with the full mapping.
func (s *FileCheckpointStore) Save(_ context.Context, checkpoints Checkpoints) error {
	data, err := json.MarshalIndent(checkpoints, "", "    ")
	if err != nil {
		return fmt.Errorf("encode checkpoints: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create checkpoint directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write checkpoint file: %w", err)
	}
	return nil
}
