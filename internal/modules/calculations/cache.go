// Package calculations provides a persistent TTL cache for expensive
// analytics results, so repeated requests for the same tickers and
// parameters skip recomputation.
package calculations

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrCacheMiss is returned when a key is absent or its entry expired
var ErrCacheMiss = errors.New("cache miss")

// DefaultTTL applies when a caller passes a non-positive TTL
const DefaultTTL = time.Hour

// Cache is a key-value store with expiration, backed by the cache
// database. Values are msgpack-encoded.
type Cache struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewCache creates a cache on top of an open cache-profile database
func NewCache(db *sql.DB, log zerolog.Logger) *Cache {
	return &Cache{
		db:  db,
		log: log.With().Str("component", "calc_cache").Logger(),
	}
}

// EnsureSchema creates the cache table if missing
func (c *Cache) EnsureSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS calc_cache (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_calc_cache_expires ON calc_cache(expires_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to create cache schema: %w", err)
	}
	return nil
}

// Key builds a deterministic cache key from an operation name, a
// ticker list (order-independent) and the remaining parameters. The
// hash is truncated to 16 bytes, plenty for key uniqueness.
func Key(operation string, symbols []string, params ...any) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)

	parts := []string{strings.Join(sorted, ",")}
	for _, p := range params {
		parts = append(parts, fmt.Sprintf("%v", p))
	}
	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return operation + ":" + hex.EncodeToString(h[:16])
}

// Set stores a value under key with the given TTL
func (c *Cache) Set(key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	encoded, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value for %s: %w", key, err)
	}

	expiresAt := time.Now().Add(ttl).Unix()
	_, err = c.db.Exec(`
		INSERT INTO calc_cache (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`, key, encoded, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store cache entry %s: %w", key, err)
	}
	return nil
}

// Get loads the value stored under key into dest. Expired entries are
// treated as misses and deleted lazily.
func (c *Cache) Get(key string, dest any) error {
	var encoded []byte
	var expiresAt int64
	err := c.db.QueryRow(
		"SELECT value, expires_at FROM calc_cache WHERE key = ?", key,
	).Scan(&encoded, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}

	if time.Now().Unix() >= expiresAt {
		if _, err := c.db.Exec("DELETE FROM calc_cache WHERE key = ?", key); err != nil {
			c.log.Warn().Str("key", key).Err(err).Msg("Failed to delete expired cache entry")
		}
		return ErrCacheMiss
	}

	if err := msgpack.Unmarshal(encoded, dest); err != nil {
		return fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return nil
}

// Delete removes one cache entry
func (c *Cache) Delete(key string) error {
	_, err := c.db.Exec("DELETE FROM calc_cache WHERE key = ?", key)
	return err
}

// DeleteByPrefix removes all entries whose key starts with prefix,
// used to invalidate one operation's results wholesale
func (c *Cache) DeleteByPrefix(prefix string) error {
	_, err := c.db.Exec("DELETE FROM calc_cache WHERE key LIKE ?", prefix+"%")
	return err
}

// PurgeExpired removes all expired entries and returns how many were dropped
func (c *Cache) PurgeExpired() (int64, error) {
	result, err := c.db.Exec("DELETE FROM calc_cache WHERE expires_at <= ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired cache entries: %w", err)
	}
	dropped, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	if dropped > 0 {
		c.log.Debug().Int64("entries", dropped).Msg("Purged expired cache entries")
	}
	return dropped, nil
}
