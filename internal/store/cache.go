// Package store provides the optional SQLite cache for composition
// lookups. The cache is a transparent decorator: it satisfies the same
// lookup surface as the live client and never changes tier semantics,
// it only short-circuits repeat network calls within the TTL window.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"nutricoach/internal/fatsecret"
	"nutricoach/internal/logging"
)

// Source is the composition lookup surface the cache decorates.
// *fatsecret.Client satisfies it.
type Source interface {
	Search(ctx context.Context, term string) (*fatsecret.Food, error)
	GetFood(ctx context.Context, foodID string) (*fatsecret.FoodDetail, error)
}

// LookupCache caches search hits and food records in SQLite. Negative
// results are never cached; source errors pass through uncached. Cache
// failures degrade to live lookups, they never fail a resolution.
type LookupCache struct {
	source Source
	db     *sql.DB
	mu     sync.RWMutex
	ttl    time.Duration

	// now is swappable in tests to age cache entries.
	now func() time.Time
}

// NewLookupCache opens (or creates) the cache database at path.
// A non-positive ttl falls back to 24 hours.
func NewLookupCache(source Source, path string, ttl time.Duration) (*LookupCache, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	c := &LookupCache{source: source, db: db, ttl: ttl, now: time.Now}
	if err := c.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("Lookup cache ready at %s (ttl %s)", path, ttl)
	return c, nil
}

// initialize creates the required tables.
func (c *LookupCache) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS search_cache (
		term TEXT PRIMARY KEY,
		food_id TEXT NOT NULL,
		food_name TEXT NOT NULL,
		cached_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS food_cache (
		food_id TEXT PRIMARY KEY,
		detail TEXT NOT NULL,
		cached_at INTEGER NOT NULL
	);
	`
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create cache schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (c *LookupCache) Close() error {
	return c.db.Close()
}

func (c *LookupCache) cutoff() int64 {
	return c.now().Add(-c.ttl).Unix()
}

// Search returns a cached search hit when one is fresh, otherwise asks
// the live source and caches a positive result.
func (c *LookupCache) Search(ctx context.Context, term string) (*fatsecret.Food, error) {
	c.mu.RLock()
	var foodID, foodName string
	err := c.db.QueryRowContext(ctx,
		"SELECT food_id, food_name FROM search_cache WHERE term = ? AND cached_at > ?",
		term, c.cutoff()).Scan(&foodID, &foodName)
	c.mu.RUnlock()

	if err == nil {
		logging.StoreDebug("[Cache] search hit: %q -> %s", term, foodID)
		return &fatsecret.Food{FoodID: foodID, FoodName: foodName}, nil
	}
	if err != sql.ErrNoRows {
		logging.StoreWarn("[Cache] search read failed for %q: %v", term, err)
	}

	food, err := c.source.Search(ctx, term)
	if err != nil || food == nil {
		return food, err
	}

	c.mu.Lock()
	_, werr := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO search_cache (term, food_id, food_name, cached_at) VALUES (?, ?, ?, ?)",
		term, food.FoodID, food.FoodName, c.now().Unix())
	c.mu.Unlock()
	if werr != nil {
		logging.StoreWarn("[Cache] search write failed for %q: %v", term, werr)
	}

	return food, nil
}

// GetFood returns a cached food record when one is fresh, otherwise
// asks the live source and caches the result.
func (c *LookupCache) GetFood(ctx context.Context, foodID string) (*fatsecret.FoodDetail, error) {
	c.mu.RLock()
	var raw string
	err := c.db.QueryRowContext(ctx,
		"SELECT detail FROM food_cache WHERE food_id = ? AND cached_at > ?",
		foodID, c.cutoff()).Scan(&raw)
	c.mu.RUnlock()

	if err == nil {
		var detail fatsecret.FoodDetail
		if uerr := json.Unmarshal([]byte(raw), &detail); uerr == nil {
			logging.StoreDebug("[Cache] food hit: %s", foodID)
			return &detail, nil
		}
		logging.StoreWarn("[Cache] corrupt cached record for %s, refetching", foodID)
	} else if err != sql.ErrNoRows {
		logging.StoreWarn("[Cache] food read failed for %s: %v", foodID, err)
	}

	detail, err := c.source.GetFood(ctx, foodID)
	if err != nil || detail == nil {
		return detail, err
	}

	encoded, merr := json.Marshal(detail)
	if merr != nil {
		logging.StoreWarn("[Cache] failed to encode record for %s: %v", foodID, merr)
		return detail, nil
	}

	c.mu.Lock()
	_, werr := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO food_cache (food_id, detail, cached_at) VALUES (?, ?, ?)",
		foodID, string(encoded), c.now().Unix())
	c.mu.Unlock()
	if werr != nil {
		logging.StoreWarn("[Cache] food write failed for %s: %v", foodID, werr)
	}

	return detail, nil
}
