// Package audit stores a history of evaluation requests the refal server has
// handled, the way the teacher's server/dao/sqlite stores game state: a
// sqlite-backed table opened with database/sql and the modernc.org/sqlite
// pure-Go driver, keyed by a google/uuid request ID.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one recorded evaluation request.
type Entry struct {
	ID         uuid.UUID
	ReceivedAt time.Time
	Goal       string
	Result     string
	Err        string
}

// Log is a sqlite-backed audit trail.
type Log struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at file and ensures
// its schema exists.
func Open(file string) (*Log, error) {
	db, err := sql.Open("sqlite", file)
	if err != nil {
		return nil, fmt.Errorf("open audit db %s: %w", file, err)
	}
	l := &Log{db: db}
	if err := l.init(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Log) init() error {
	const stmt = `CREATE TABLE IF NOT EXISTS requests (
		id TEXT NOT NULL PRIMARY KEY,
		received_at INTEGER NOT NULL,
		goal TEXT NOT NULL,
		result TEXT NOT NULL,
		error TEXT NOT NULL
	)`
	_, err := l.db.Exec(stmt)
	if err != nil {
		return fmt.Errorf("create requests table: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (l *Log) Close() error {
	return l.db.Close()
}

// Record inserts a new Entry with a freshly generated ID and the current
// time, returning the assigned ID.
func (l *Log) Record(ctx context.Context, goal, result, errMsg string) (uuid.UUID, error) {
	id := uuid.New()
	const stmt = `INSERT INTO requests (id, received_at, goal, result, error) VALUES (?, ?, ?, ?, ?)`
	_, err := l.db.ExecContext(ctx, stmt, id.String(), time.Now().Unix(), goal, result, errMsg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert audit entry: %w", err)
	}
	return id, nil
}

// Get retrieves a single Entry by ID.
func (l *Log) Get(ctx context.Context, id uuid.UUID) (Entry, error) {
	const stmt = `SELECT id, received_at, goal, result, error FROM requests WHERE id = ?`
	row := l.db.QueryRowContext(ctx, stmt, id.String())

	var e Entry
	var idStr string
	var receivedAt int64
	if err := row.Scan(&idStr, &receivedAt, &e.Goal, &e.Result, &e.Err); err != nil {
		return Entry{}, fmt.Errorf("scan audit entry %s: %w", id, err)
	}

	parsedID, err := uuid.Parse(idStr)
	if err != nil {
		return Entry{}, fmt.Errorf("parse audit entry id: %w", err)
	}
	e.ID = parsedID
	e.ReceivedAt = time.Unix(receivedAt, 0)
	return e, nil
}
