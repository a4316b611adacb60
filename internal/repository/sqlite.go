package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xiaot623/gogo/dashboard/internal/domain"
)

// SQLiteLog implements SequencedLog on SQLite. The primary key on
// (stream, run_id, sequence) makes a duplicate sequence impossible even if two
// writers race.
type SQLiteLog struct {
	db *sql.DB
}

// NewSQLiteLog opens (and migrates) a SQLite log database.
func NewSQLiteLog(dsn string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer, and for in-memory databases every extra
	// connection would be a separate database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	l := &SQLiteLog{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return l, nil
}

// migrate runs database migrations.
func (l *SQLiteLog) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS log_records (
			stream TEXT NOT NULL,
			run_id TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			body TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (stream, run_id, sequence)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_log_records_run ON log_records(run_id)`,
	}

	for _, m := range migrations {
		if _, err := l.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Append inserts rec with the next sequence of its stream.
func (l *SQLiteLog) Append(ctx context.Context, runID string, stream domain.Stream, rec domain.Record) (int, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	var last int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM log_records WHERE stream = ? AND run_id = ?`,
		string(stream), runID).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("read last %s sequence: %w", stream, err)
	}

	sequence := last + 1
	rec.SetSequence(sequence)
	body, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("marshal %s record: %w", stream, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO log_records (stream, run_id, sequence, body) VALUES (?, ?, ?, ?)`,
		string(stream), runID, sequence, string(body)); err != nil {
		return 0, fmt.Errorf("insert %s record: %w", stream, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append: %w", err)
	}
	return sequence, nil
}

// Read returns the raw records of the stream ordered by sequence.
func (l *SQLiteLog) Read(ctx context.Context, runID string, stream domain.Stream) ([]json.RawMessage, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT body FROM log_records WHERE stream = ? AND run_id = ? ORDER BY sequence ASC`,
		string(stream), runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []json.RawMessage{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		records = append(records, json.RawMessage(body))
	}
	return records, rows.Err()
}

// Count returns the number of records in the stream.
func (l *SQLiteLog) Count(ctx context.Context, runID string, stream domain.Stream) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM log_records WHERE stream = ? AND run_id = ?`,
		string(stream), runID).Scan(&n)
	return n, err
}

// Remove deletes every record of the run.
func (l *SQLiteLog) Remove(ctx context.Context, runID string) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM log_records WHERE run_id = ?`, runID)
	return err
}

// Close closes the database connection.
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}
