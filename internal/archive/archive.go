// Package archive persists log entries in SQLite for the log service.
//
// The seq column is an AUTOINCREMENT rowid, so it is never reused after
// retention deletes and gives every entry a stable position in the total
// order that clients resume from.
package archive

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/five82/agentlog/internal/logfeed"
)

//go:embed schema.sql
var schema string

// MaxPage caps the number of rows a single read returns.
const MaxPage = 1000

// Archive is a SQLite-backed entry log.
type Archive struct {
	conn *sql.DB
}

// Open opens (creating if needed) the database at path. ":memory:" is
// accepted for tests and demo runs.
func Open(path string) (*Archive, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		conn.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Archive{conn: conn}, nil
}

// Close releases the database.
func (a *Archive) Close() error {
	return a.conn.Close()
}

const insertSQL = `INSERT INTO entries (id, ts, level, message, created_at) VALUES (?, ?, ?, ?, ?)`

// Insert stores e and returns it with its assigned Seq.
func (a *Archive) Insert(ctx context.Context, e logfeed.Entry) (logfeed.Entry, error) {
	res, err := a.conn.ExecContext(ctx, insertSQL,
		e.ID, e.Timestamp.UnixNano(), string(e.Level), e.Message, time.Now().UnixNano())
	if err != nil {
		return logfeed.Entry{}, fmt.Errorf("insert entry %s: %w", e.ID, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return logfeed.Entry{}, fmt.Errorf("insert entry %s: %w", e.ID, err)
	}
	e.Seq = uint64(seq)
	return e, nil
}

// InsertBatch stores entries in one transaction, in order, and returns them
// with their assigned Seq values. Either all entries are stored or none.
func (a *Archive) InsertBatch(ctx context.Context, entries []logfeed.Entry) ([]logfeed.Entry, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	tx, err := a.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return nil, fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixNano()
	out := make([]logfeed.Entry, len(entries))
	for i, e := range entries {
		res, err := stmt.ExecContext(ctx, e.ID, e.Timestamp.UnixNano(), string(e.Level), e.Message, now)
		if err != nil {
			return nil, fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
		seq, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
		e.Seq = uint64(seq)
		out[i] = e
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return out, nil
}

// Recent returns the newest limit entries, oldest first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]logfeed.Entry, error) {
	rows, err := a.conn.QueryContext(ctx, `
		SELECT seq, id, ts, level, message FROM (
			SELECT seq, id, ts, level, message FROM entries ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	return scanEntries(rows)
}

// Since returns up to limit entries with Seq greater than seq, oldest first.
func (a *Archive) Since(ctx context.Context, seq uint64, limit int) ([]logfeed.Entry, error) {
	rows, err := a.conn.QueryContext(ctx, `
		SELECT seq, id, ts, level, message FROM entries
		WHERE seq > ? ORDER BY seq ASC LIMIT ?`, int64(seq), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query since %d: %w", seq, err)
	}
	return scanEntries(rows)
}

// LastSeq returns the highest assigned Seq, zero for an empty archive.
func (a *Archive) LastSeq(ctx context.Context) (uint64, error) {
	var seq sql.NullInt64
	if err := a.conn.QueryRowContext(ctx, `SELECT MAX(seq) FROM entries`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return uint64(seq.Int64), nil
}

// Count returns the number of stored entries.
func (a *Archive) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := a.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// DeleteOlderThan removes entries whose timestamp is more than olderThan in
// the past and returns how many were deleted.
func (a *Archive) DeleteOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("retention must be positive")
	}
	cutoff := time.Now().Add(-olderThan).UnixNano()
	res, err := a.conn.ExecContext(ctx, `DELETE FROM entries WHERE ts < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old entries: %w", err)
	}
	return res.RowsAffected()
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxPage {
		return MaxPage
	}
	return limit
}

func scanEntries(rows *sql.Rows) ([]logfeed.Entry, error) {
	defer rows.Close()

	var out []logfeed.Entry
	for rows.Next() {
		var (
			e     logfeed.Entry
			seq   int64
			ts    int64
			level string
		)
		if err := rows.Scan(&seq, &e.ID, &ts, &level, &e.Message); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Seq = uint64(seq)
		e.Timestamp = time.Unix(0, ts).UTC()
		e.Level = logfeed.Level(level)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}
