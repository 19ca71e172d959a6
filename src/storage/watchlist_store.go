package storage

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/username/insightai/backend/src/logger"
	"github.com/username/insightai/backend/src/models"
)

// WatchlistStore persists the watchlist as a single JSON array file. Every
// mutation is a wholesale rewrite; there is no per-item API.
type WatchlistStore struct {
	path string
}

func NewWatchlistStore(path string) *WatchlistStore {
	return &WatchlistStore{path: path}
}

// LoadAll reads the backing file and returns the stored items in file order.
// An absent file is equivalent to an empty watchlist. Deserialization
// failures are logged and yield an empty list; they never propagate.
func (s *WatchlistStore) LoadAll() []models.WatchlistItem {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) && logger.L != nil {
			logger.L.Error("Error loading watchlist file", "path", s.path, "error", err)
		}
		return []models.WatchlistItem{}
	}

	var items []models.WatchlistItem
	if err := json.Unmarshal(data, &items); err != nil {
		if logger.L != nil {
			logger.L.Error("Error parsing watchlist file, treating as empty", "path", s.path, "error", err)
		}
		return []models.WatchlistItem{}
	}
	if items == nil {
		items = []models.WatchlistItem{}
	}
	return items
}

// SaveAll serializes the full item list back to the backing file,
// overwriting it entirely. Returns false on any I/O failure.
func (s *WatchlistStore) SaveAll(items []models.WatchlistItem) bool {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error serializing watchlist", "error", err)
		}
		return false
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		if logger.L != nil {
			logger.L.Error("Error saving watchlist file", "path", s.path, "error", err)
		}
		return false
	}
	return true
}
