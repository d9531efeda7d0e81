// Package archive persists feed events to a local SQLite database so a
// restarted client can render its last-known feed before relays answer.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/minagishl/nostro/internal/types"
)

// Repository stores events in SQLite.
type Repository struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	pubkey     TEXT NOT NULL,
	kind       INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	content    TEXT NOT NULL,
	tags       TEXT NOT NULL,
	sig        TEXT NOT NULL,
	archived_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_events_pubkey ON events(pubkey);
`

// NewRepository opens (creating if needed) the archive database at path.
// The caller should call Close when done.
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// SaveEvents inserts a batch of events, skipping ids already archived.
func (r *Repository) SaveEvents(ctx context.Context, events []types.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (id, pubkey, kind, created_at, content, tags, sig, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, evt := range events {
		tags, err := json.Marshal(evt.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags for %s: %w", evt.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			evt.ID, evt.PubKey, evt.Kind, evt.CreatedAt,
			evt.Content, string(tags), evt.Sig, now,
		); err != nil {
			return fmt.Errorf("insert event %s: %w", evt.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RecentEvents returns the newest archived events, created_at descending.
func (r *Repository) RecentEvents(ctx context.Context, limit int) ([]types.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, pubkey, kind, created_at, content, tags, sig
		FROM events
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// EventsByAuthor returns an author's archived events, newest first.
func (r *Repository) EventsByAuthor(ctx context.Context, pubkey string, limit int) ([]types.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, pubkey, kind, created_at, content, tags, sig
		FROM events
		WHERE pubkey = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, pubkey, limit)
	if err != nil {
		return nil, fmt.Errorf("query events by author: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// DeleteOldEvents removes events whose created_at is older than maxAge.
// Returns the number of rows deleted.
func (r *Repository) DeleteOldEvents(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired events: %w", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

func scanEvents(rows *sql.Rows) ([]types.Event, error) {
	var events []types.Event
	for rows.Next() {
		var evt types.Event
		var tags string
		if err := rows.Scan(&evt.ID, &evt.PubKey, &evt.Kind, &evt.CreatedAt,
			&evt.Content, &tags, &evt.Sig); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &evt.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
