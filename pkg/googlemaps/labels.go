package googlemaps

import (
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/maypok86/otter/v2"
)

const labelCacheFile = "labels.gob"

type labelEntry struct {
	ExpiresAt time.Time
	Label     string
}

// labelCache is a bounded in-memory label cache, optionally saved to a gob
// file so labels survive restarts.
type labelCache struct {
	cache  *otter.Cache[string, labelEntry]
	logger *slog.Logger
	dir    string
	ttl    time.Duration
	mu     sync.Mutex
}

func newLabelCache(dir string, ttl time.Duration, logger *slog.Logger) *labelCache {
	c := &labelCache{
		cache: otter.Must(&otter.Options[string, labelEntry]{
			MaximumSize:      10_000,
			ExpiryCalculator: otter.ExpiryWriting[string, labelEntry](ttl),
		}),
		dir:    dir,
		ttl:    ttl,
		logger: logger,
	}
	if dir != "" {
		if err := c.load(); err != nil {
			logger.Warn("failed to load label cache", "error", err)
		}
	}
	return c
}

func (c *labelCache) get(key string) (string, bool) {
	entry, ok := c.cache.GetIfPresent(key)
	if !ok || time.Now().After(entry.ExpiresAt) {
		return "", false
	}
	return entry.Label, true
}

func (c *labelCache) set(key, label string) {
	c.cache.Set(key, labelEntry{Label: label, ExpiresAt: time.Now().Add(c.ttl)})
}

func (c *labelCache) load() error {
	path := filepath.Join(c.dir, labelCacheFile)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening label cache: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			c.logger.Debug("failed to close label cache", "error", err)
		}
	}()

	var entries map[string]labelEntry
	if err := gob.NewDecoder(file).Decode(&entries); err != nil {
		return fmt.Errorf("decoding label cache: %w", err)
	}

	now := time.Now()
	valid := 0
	for key, entry := range entries {
		if now.Before(entry.ExpiresAt) {
			c.cache.Set(key, entry)
			valid++
		}
	}
	c.logger.Debug("label cache loaded", "path", path, "entries", len(entries), "valid", valid)
	return nil
}

func (c *labelCache) save() error {
	if c.dir == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	entries := make(map[string]labelEntry)
	now := time.Now()
	for key, entry := range c.cache.All() {
		if now.Before(entry.ExpiresAt) {
			entries[key] = entry
		}
	}

	path := filepath.Join(c.dir, labelCacheFile)
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp label cache: %w", err)
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
			c.logger.Debug("failed to remove temp file", "error", err)
		}
	}()

	if err := gob.NewEncoder(file).Encode(entries); err != nil {
		_ = file.Close()
		return fmt.Errorf("encoding label cache: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("syncing label cache: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing label cache: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("replacing label cache: %w", err)
	}
	c.logger.Debug("label cache saved", "entries", len(entries), "path", path)
	return nil
}
