// Package respcache implements a local key-value response cache keyed by
// (botId, hash(payload+options), dataDate), backed by an SQLite-backed
// key-value store and msgpack encoding for compact binary caching.
package respcache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/stratbacktest/internal/database"
)

const schema = `
CREATE TABLE IF NOT EXISTS response_cache (
	bot_id     TEXT NOT NULL,
	payload_hash TEXT NOT NULL,
	data_date  TEXT NOT NULL,
	payload    BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (bot_id, payload_hash, data_date)
);
`

// Cache is a two-tier response cache's local tier: a cache miss here is the
// signal to invoke the core backtest engine. There is no in-process/RPC
// tier in this engine — only the durable SQLite fallback.
type Cache struct {
	db *database.DB
}

// Open creates (or opens) the response-cache database at path.
func Open(path string) (*Cache, error) {
	db, err := database.New(database.Config{Path: path, Name: "respcache"})
	if err != nil {
		return nil, fmt.Errorf("respcache: open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("respcache: create schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying connection.
func (c *Cache) Close() error { return c.db.Close() }

// Key identifies one cached response.
type Key struct {
	BotID    string
	DataDate string // YYYY-MM-DD, the dataset's "as of" date
	Payload  any    // the full request payload + options, hashed for identity
}

// hash derives a stable, order-independent identity for the request: the
// canonical JSON encoding of Payload, sha256-hashed.
func (k Key) hash() (string, error) {
	canon, err := json.Marshal(k.Payload)
	if err != nil {
		return "", fmt.Errorf("respcache: hashing payload: %w", err)
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// Get decodes the cached response for key into out and reports whether one
// was found; a cache miss returns (false, nil).
func (c *Cache) Get(key Key, out any) (bool, error) {
	h, err := key.hash()
	if err != nil {
		return false, err
	}

	var blob []byte
	row := c.db.QueryRow(
		`SELECT payload FROM response_cache WHERE bot_id = ? AND payload_hash = ? AND data_date = ?`,
		key.BotID, h, key.DataDate,
	)
	if err := row.Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("respcache: get: %w", err)
	}

	if err := msgpack.Unmarshal(blob, out); err != nil {
		return false, fmt.Errorf("respcache: decode: %w", err)
	}
	return true, nil
}

// Put stores value under key, created at the given unix-seconds timestamp
// (passed in rather than read from the clock, so callers control it).
func (c *Cache) Put(key Key, value any, createdAt int64) error {
	h, err := key.hash()
	if err != nil {
		return err
	}
	blob, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("respcache: encode: %w", err)
	}

	_, err = c.db.Exec(
		`INSERT INTO response_cache (bot_id, payload_hash, data_date, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (bot_id, payload_hash, data_date) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		key.BotID, h, key.DataDate, blob, createdAt,
	)
	if err != nil {
		return fmt.Errorf("respcache: put: %w", err)
	}
	return nil
}

// Invalidate drops every cached response for a bot whose data_date is
// older than cutoff (YYYY-MM-DD), called when the scheduler bumps the
// dataset's date.
func (c *Cache) Invalidate(botID, cutoff string) error {
	_, err := c.db.Exec(`DELETE FROM response_cache WHERE bot_id = ? AND data_date < ?`, botID, cutoff)
	if err != nil {
		return fmt.Errorf("respcache: invalidate: %w", err)
	}
	return nil
}
