// Package cache provides the local JSON snapshot cache and persistent prefs.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qoishaidar/uang/internal/common"
	"github.com/qoishaidar/uang/internal/interfaces"
	"github.com/qoishaidar/uang/internal/models"
)

const snapshotFile = "snapshot.json"

// Store persists the last good snapshot of all four collections as a single
// JSON document, overwritten whole on every save.
type Store struct {
	dir    string
	logger *common.Logger
}

// Compile-time interface check
var _ interfaces.SnapshotStore = (*Store)(nil)

// NewStore creates the cache directory if needed.
func NewStore(logger *common.Logger, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	logger.Debug().Str("path", dir).Msg("Snapshot cache opened")
	return &Store{dir: dir, logger: logger}, nil
}

// Load reads and decodes the snapshot file.
func (s *Store) Load() (*models.Snapshot, error) {
	path := filepath.Join(s.dir, snapshotFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("snapshot cache not found")
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &snapshot, nil
}

// Save writes the snapshot atomically: temp file in the same directory, then
// rename over the target.
func (s *Store) Save(snapshot *models.Snapshot) error {
	return writeJSONAtomic(s.dir, snapshotFile, snapshot)
}

func writeJSONAtomic(dir, name string, data interface{}) error {
	target := filepath.Join(dir, name)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	jsonData = append(jsonData, '\n')

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(jsonData); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
