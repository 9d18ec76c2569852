package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteSink stores flushed events in a SQLite table.
// Inserts are keyed by event ID, so a batch resent after a failed
// acknowledgement is not stored twice.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the events database at path.
// Use ":memory:" for testing.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			name TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			properties TEXT NOT NULL,
			identity TEXT,
			funnel TEXT
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create events table: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Send implements Sink. The batch is inserted in one transaction.
func (s *SQLiteSink) Send(ctx context.Context, events []Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (id, seq, name, timestamp, properties, identity, funnel)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		props, err := json.Marshal(e.Properties)
		if err != nil {
			return fmt.Errorf("encode properties of %s: %w", e.ID, err)
		}
		identity, err := nullableJSON(e.Identity)
		if err != nil {
			return fmt.Errorf("encode identity of %s: %w", e.ID, err)
		}
		funnel, err := nullableJSON(e.Funnel)
		if err != nil {
			return fmt.Errorf("encode funnel of %s: %w", e.ID, err)
		}

		if _, err := stmt.ExecContext(ctx,
			e.ID, int64(e.Seq), e.Name, e.Timestamp.UnixNano(), string(props), identity, funnel,
		); err != nil {
			return fmt.Errorf("insert event %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Count returns the number of stored events.
func (s *SQLiteSink) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Events reads stored events back in sequence order.
func (s *SQLiteSink) Events(ctx context.Context) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, name, timestamp, properties, identity, funnel
		FROM events
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e        Event
			seq      int64
			ts       int64
			props    string
			identity sql.NullString
			funnel   sql.NullString
		)
		if err := rows.Scan(&e.ID, &seq, &e.Name, &ts, &props, &identity, &funnel); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Seq = uint64(seq)
		e.Timestamp = time.Unix(0, ts).UTC()
		if err := json.Unmarshal([]byte(props), &e.Properties); err != nil {
			return nil, fmt.Errorf("decode properties of %s: %w", e.ID, err)
		}
		if identity.Valid {
			e.Identity = &Identity{}
			if err := json.Unmarshal([]byte(identity.String), e.Identity); err != nil {
				return nil, fmt.Errorf("decode identity of %s: %w", e.ID, err)
			}
		}
		if funnel.Valid {
			e.Funnel = &FunnelRecord{}
			if err := json.Unmarshal([]byte(funnel.String), e.Funnel); err != nil {
				return nil, fmt.Errorf("decode funnel of %s: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func nullableJSON[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
