// Package cache persists annotations between runs as one JSON file per
// article title, keyed by a fingerprint of the normalized title. The cache
// is best-effort: every failure mode degrades to a miss.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lumenmedi/lumen/internal/annotate"
)

type entry struct {
	CreatedAt  time.Time           `json:"created_at"`
	Title      string              `json:"title"`
	Annotation annotate.Annotation `json:"annotation"`
}

type Cache struct {
	dir string
	ttl time.Duration
}

func New(dir string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, ttl: ttl}, nil
}

// Key fingerprints a title: whitespace-collapsed, lowercased, hashed. Titles
// differing only in case or spacing share an entry.
func Key(title string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(title)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}

// Lookup returns the cached annotation for the title, if present and fresh.
// An expired entry is removed on the spot. Unreadable or corrupt files count
// as misses.
func (c *Cache) Lookup(title string) (annotate.Annotation, bool) {
	path := c.path(Key(title))

	data, err := os.ReadFile(path)
	if err != nil {
		return annotate.Annotation{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		slog.Debug("cache entry unreadable", "path", path, "error", err)
		return annotate.Annotation{}, false
	}

	if time.Since(e.CreatedAt) > c.ttl {
		if err := os.Remove(path); err != nil {
			slog.Debug("expired cache entry not removed", "path", path, "error", err)
		}
		return annotate.Annotation{}, false
	}

	return e.Annotation, true
}

// Store writes the annotation for the title. Write failures are logged and
// swallowed; a cold entry only costs one extra API call next run.
func (c *Cache) Store(title string, a annotate.Annotation) {
	e := entry{CreatedAt: time.Now(), Title: title, Annotation: a}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		slog.Warn("cache entry not encodable", "error", err)
		return
	}

	path := c.path(Key(title))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		slog.Warn("cache write failed", "path", tmp, "error", err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		slog.Warn("cache rename failed", "path", path, "error", err)
		os.Remove(tmp)
	}
}

// Sweep removes every expired entry. Called once at the start of a run to
// keep the cache directory from accumulating stale files.
func (c *Cache) Sweep() int {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		slog.Warn("cache sweep skipped", "dir", c.dir, "error", err)
		return 0
	}

	removed := 0
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		path := filepath.Join(c.dir, de.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var e entry
		if err := json.Unmarshal(data, &e); err != nil || time.Since(e.CreatedAt) > c.ttl {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		slog.Info("cache swept", "removed", removed)
	}
	return removed
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}
