// Package history records daily net worth snapshots and derives analytics
// from them.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"folio/internal/database"
)

// Snapshot is one recorded point of the net worth series.
type Snapshot struct {
	Date           string  `json:"date"`
	NetWorth       float64 `json:"net_worth"`
	CashUSD        float64 `json:"cash_usd"`
	PositionsValue float64 `json:"positions_value"`
}

// Repository persists net worth snapshots in the history database.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates a new history repository
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "history").Logger(),
	}
}

// Migrate creates the snapshots table if it does not exist.
func (r *Repository) Migrate() error {
	_, err := r.db.Conn().Exec(`
		CREATE TABLE IF NOT EXISTS net_worth_snapshots (
			date            TEXT PRIMARY KEY,
			net_worth       REAL NOT NULL,
			cash_usd        REAL NOT NULL,
			positions_value REAL NOT NULL,
			created_at      INTEGER NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create snapshots table: %w", err)
	}
	return nil
}

// Upsert writes the snapshot for its date, replacing any earlier value for
// the same day. One row per calendar day.
func (r *Repository) Upsert(s Snapshot) error {
	_, err := r.db.Conn().Exec(`
		INSERT INTO net_worth_snapshots (date, net_worth, cash_usd, positions_value, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			net_worth = excluded.net_worth,
			cash_usd = excluded.cash_usd,
			positions_value = excluded.positions_value,
			created_at = excluded.created_at`,
		s.Date, s.NetWorth, s.CashUSD, s.PositionsValue, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot for %s: %w", s.Date, err)
	}
	return nil
}

// Recent returns the latest snapshots in chronological order. days <= 0
// returns the full series.
func (r *Repository) Recent(days int) ([]Snapshot, error) {
	query := `
		SELECT date, net_worth, cash_usd, positions_value
		FROM net_worth_snapshots
		ORDER BY date DESC`
	var rows *sql.Rows
	var err error
	if days > 0 {
		rows, err = r.db.Conn().Query(query+" LIMIT ?", days)
	} else {
		rows, err = r.db.Conn().Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.Date, &s.NetWorth, &s.CashUSD, &s.PositionsValue); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
