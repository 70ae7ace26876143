package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	riotapi "github.com/tristan-derez/match-collector/internal/riot-api"
)

// FileStore writes one JSON file per match under <dir>/<tier>/<division>.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// BucketDir returns the folder holding a bucket's matches, e.g. matches/silver/II.
func (s *FileStore) BucketDir(b riotapi.Bucket) string {
	return filepath.Join(s.dir, strings.ToLower(b.Tier), b.Division)
}

func (s *FileStore) matchPath(b riotapi.Bucket, matchID string) (string, error) {
	if matchID == "" || strings.ContainsAny(matchID, `/\`) || strings.Contains(matchID, "..") {
		return "", fmt.Errorf("invalid match id %q", matchID)
	}
	return filepath.Join(s.BucketDir(b), matchID+".json"), nil
}

func (s *FileStore) Has(_ context.Context, b riotapi.Bucket, matchID string) (bool, error) {
	path, err := s.matchPath(b, matchID)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// PutIfAbsent creates the match file exclusively, so an existing file is never overwritten.
func (s *FileStore) PutIfAbsent(_ context.Context, b riotapi.Bucket, matchID string, payload json.RawMessage) (bool, error) {
	path, err := s.matchPath(b, matchID)
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(s.BucketDir(b), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory %s: %w", s.BucketDir(b), err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", path, err)
	}

	if _, err := f.Write(payload); err != nil {
		f.Close()
		os.Remove(path)
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return false, fmt.Errorf("failed to close %s: %w", path, err)
	}

	return true, nil
}
