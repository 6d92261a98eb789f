package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/borgmon/remindkeeper/pkg/models"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS scheduled_events (
	event_id TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS scheduled_alarm_keys (
	event_id  TEXT    NOT NULL,
	kind      TEXT    NOT NULL,
	fire_time INTEGER NOT NULL,
	PRIMARY KEY (event_id, kind)
);
`

// SQLiteRegistry stores the scheduled event IDs and the exact alarm keys
// registered for each event. It serves as both registry and key ledger.
type SQLiteRegistry struct {
	db *sql.DB
}

// OpenSQLiteRegistry opens (or creates) the state database at path
func OpenSQLiteRegistry(ctx context.Context, path string) (*SQLiteRegistry, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("error: cannot create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path))
	if err != nil {
		return nil, fmt.Errorf("error: cannot open state database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error: failed to create state schema: %w", err)
	}
	return &SQLiteRegistry{db: db}, nil
}

func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

// Load returns the event IDs saved by the previous run
func (r *SQLiteRegistry) Load(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT event_id FROM scheduled_events ORDER BY event_id`)
	if err != nil {
		return nil, fmt.Errorf("error: failed to query scheduled events: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error: failed to scan scheduled event row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error: failed to iterate scheduled event rows: %w", err)
	}
	return ids, nil
}

// Save replaces the stored event IDs with ids
func (r *SQLiteRegistry) Save(ctx context.Context, ids []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scheduled_events`); err != nil {
		return fmt.Errorf("error: failed to clear scheduled events: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO scheduled_events (event_id) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("error: failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("error: failed to insert event %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// Record remembers that key was registered to fire at fireTime
func (r *SQLiteRegistry) Record(ctx context.Context, key models.AlarmKey, fireTime time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scheduled_alarm_keys (event_id, kind, fire_time) VALUES (?, ?, ?)
		ON CONFLICT (event_id, kind) DO UPDATE SET fire_time = excluded.fire_time
	`, key.EventID, key.Kind.String(), fireTime.Unix())
	if err != nil {
		return fmt.Errorf("error: failed to record alarm key %s: %w", key, err)
	}
	return nil
}

// Remove forgets a single alarm key
func (r *SQLiteRegistry) Remove(ctx context.Context, key models.AlarmKey) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_alarm_keys WHERE event_id = ? AND kind = ?`,
		key.EventID, key.Kind.String())
	if err != nil {
		return fmt.Errorf("error: failed to remove alarm key %s: %w", key, err)
	}
	return nil
}

// Keys returns the alarm keys recorded for eventID
func (r *SQLiteRegistry) Keys(ctx context.Context, eventID string) ([]models.AlarmKey, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT kind FROM scheduled_alarm_keys WHERE event_id = ? ORDER BY kind`, eventID)
	if err != nil {
		return nil, fmt.Errorf("error: failed to query alarm keys: %w", err)
	}
	defer rows.Close()

	var keys []models.AlarmKey
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("error: failed to scan alarm key row: %w", err)
		}
		kind, err := models.ParseAlarmKind(raw)
		if err != nil {
			continue
		}
		keys = append(keys, models.AlarmKey{EventID: eventID, Kind: kind})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error: failed to iterate alarm key rows: %w", err)
	}
	return keys, nil
}

// ForgetEvent drops every alarm key recorded for eventID
func (r *SQLiteRegistry) ForgetEvent(ctx context.Context, eventID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_alarm_keys WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("error: failed to forget alarm keys for %s: %w", eventID, err)
	}
	return nil
}
