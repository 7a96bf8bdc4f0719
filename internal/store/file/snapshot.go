// Package file persists per-broker position snapshots as JSON documents on
// local disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"listingbot/internal/domain"
)

// SnapshotStore stores one pair of JSON files per broker under a data
// directory: <BROKER>_orders.json for the open positions and
// <BROKER>_sold.json for the closed history.
type SnapshotStore struct {
	dir    string
	logger *slog.Logger
}

var _ domain.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore creates a store rooted at dir, creating the directory if
// needed.
func NewSnapshotStore(dir string, logger *slog.Logger) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file: create data dir %s: %w", dir, err)
	}
	return &SnapshotStore{
		dir:    dir,
		logger: logger.With(slog.String("component", "snapshot_store")),
	}, nil
}

// Load reads the broker's snapshot. Missing files are not an error: a fresh
// deployment starts with an empty book.
func (s *SnapshotStore) Load(_ context.Context, broker string) (domain.Snapshot, error) {
	snap := domain.Snapshot{Open: make(map[string]domain.Position)}

	if err := readJSON(s.ordersPath(broker), &snap.Open); err != nil {
		return domain.Snapshot{}, fmt.Errorf("file: load open positions %s: %w", broker, err)
	}
	if err := readJSON(s.soldPath(broker), &snap.Closed); err != nil {
		return domain.Snapshot{}, fmt.Errorf("file: load closed history %s: %w", broker, err)
	}
	return snap, nil
}

// Save overwrites both of the broker's snapshot files atomically: each
// document is written to a temp file, synced, and renamed over the old one,
// so a crash mid-write never leaves a truncated snapshot.
func (s *SnapshotStore) Save(_ context.Context, broker string, snap domain.Snapshot) error {
	if err := writeJSONAtomic(s.ordersPath(broker), snap.Open); err != nil {
		return fmt.Errorf("file: save open positions %s: %w", broker, err)
	}
	if err := writeJSONAtomic(s.soldPath(broker), snap.Closed); err != nil {
		return fmt.Errorf("file: save closed history %s: %w", broker, err)
	}
	s.logger.Debug("snapshot saved",
		slog.String("broker", broker),
		slog.Int("open", len(snap.Open)),
		slog.Int("closed", len(snap.Closed)),
	)
	return nil
}

func (s *SnapshotStore) ordersPath(broker string) string {
	return filepath.Join(s.dir, strings.ToUpper(broker)+"_orders.json")
}

func (s *SnapshotStore) soldPath(broker string) string {
	return filepath.Join(s.dir, strings.ToUpper(broker)+"_sold.json")
}

// readJSON decodes the file into dst, leaving dst untouched when the file
// does not exist.
func readJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSONAtomic writes v as indented JSON via a temp file in the same
// directory, fsyncs it, and renames it into place.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
