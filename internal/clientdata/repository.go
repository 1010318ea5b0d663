// Package clientdata provides persistent caching for external API client
// responses. Values are stored as msgpack blobs with expiration timestamps
// for cache-first behavior; expired rows are kept so clients can fall back to
// stale data when the upstream API fails.
package clientdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const schema = `
CREATE TABLE IF NOT EXISTS quotes (
    symbol     TEXT PRIMARY KEY,
    data       BLOB NOT NULL,
    expires_at INTEGER NOT NULL
);
`

// Repository provides cache operations for quote data.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Migrate creates the cache schema.
func (r *Repository) Migrate() error {
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create quotes table: %w", err)
	}
	return nil
}

// Store saves a value with expiration = now + ttl.
func (r *Repository) Store(symbol string, v interface{}, ttl time.Duration) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	expiresAt := r.now().Add(ttl).Unix()
	_, err = r.db.Exec(
		"INSERT OR REPLACE INTO quotes (symbol, data, expires_at) VALUES (?, ?, ?)",
		symbol, data, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store cache value for %s: %w", symbol, err)
	}
	return nil
}

// GetIfFresh decodes the cached value into v only if it has not expired.
// Returns false when the key is missing or stale.
func (r *Repository) GetIfFresh(symbol string, v interface{}) (bool, error) {
	return r.get(symbol, v, true)
}

// GetStale decodes the cached value into v regardless of expiration.
// Used as a fallback when the upstream API fails (stale data > no data).
func (r *Repository) GetStale(symbol string, v interface{}) (bool, error) {
	return r.get(symbol, v, false)
}

func (r *Repository) get(symbol string, v interface{}, freshOnly bool) (bool, error) {
	var data []byte
	var expiresAt int64

	err := r.db.QueryRow(
		"SELECT data, expires_at FROM quotes WHERE symbol = ?", symbol,
	).Scan(&data, &expiresAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query cache for %s: %w", symbol, err)
	}

	if freshOnly && expiresAt <= r.now().Unix() {
		return false, nil
	}

	if err := msgpack.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value for %s: %w", symbol, err)
	}
	return true, nil
}

// Cleanup deletes rows that expired more than keepStale ago. Recently expired
// rows survive as stale fallbacks.
func (r *Repository) Cleanup(keepStale time.Duration) (int64, error) {
	cutoff := r.now().Add(-keepStale).Unix()
	res, err := r.db.Exec("DELETE FROM quotes WHERE expires_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
