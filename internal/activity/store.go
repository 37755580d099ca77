package activity

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the interface for writing and reading journal entries.
type Store interface {
	// Append records one finished call. Appending an id twice is a no-op.
	Append(ctx context.Context, e Entry) error

	// List returns entries newest first, plus a cursor for the next page
	// ("" when there is none).
	List(ctx context.Context, opts QueryOptions) (entries []Entry, nextCursor string, err error)
}

// SQLiteStore implements Store on an SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the journal database and its table.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.CreateTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal table: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTable creates the invocation_entries table if it does not exist.
func (s *SQLiteStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS invocation_entries (
			id            TEXT PRIMARY KEY,
			call_id       TEXT NOT NULL,
			operation     TEXT NOT NULL,
			path          TEXT NOT NULL DEFAULT '',
			outcome       TEXT NOT NULL,
			tx_hash       TEXT NOT NULL DEFAULT '',
			result        TEXT,
			error_code    TEXT NOT NULL DEFAULT '',
			error         TEXT NOT NULL DEFAULT '',
			schema_digest TEXT NOT NULL DEFAULT '',
			generation    INTEGER NOT NULL DEFAULT 0,
			superseded    INTEGER NOT NULL DEFAULT 0,
			occurred_at   INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_invocation_operation_time
			ON invocation_entries (operation, occurred_at DESC);
	`)
	return err
}

// Append inserts an entry.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {
	var result any
	if len(e.Result) > 0 {
		result = string(e.Result)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invocation_entries (
			id, call_id, operation, path, outcome, tx_hash, result,
			error_code, error, schema_digest, generation, superseded, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.CallID, e.Operation, e.Path, e.Outcome, e.TxHash, result,
		e.ErrorCode, e.Error, e.SchemaDigest, int64(e.Generation), e.Superseded, e.OccurredAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}
	return nil
}

// List returns entries matching opts, newest first.
func (s *SQLiteStore) List(ctx context.Context, opts QueryOptions) ([]Entry, string, error) {
	limit := opts.limit()

	var conditions []string
	var args []any
	if opts.Operation != "" {
		conditions = append(conditions, "operation = ?")
		args = append(args, opts.Operation)
	}
	if opts.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, opts.Outcome)
	}
	if opts.Since != nil {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, opts.Since.UnixNano())
	}
	if c, ok := decodeCursor(opts.Cursor); ok {
		conditions = append(conditions, "(occurred_at < ? OR (occurred_at = ? AND id < ?))")
		args = append(args, c.at, c.at, c.id)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	query := fmt.Sprintf(`
		SELECT id, call_id, operation, path, outcome, tx_hash, result,
			error_code, error, schema_digest, generation, superseded, occurred_at
		FROM invocation_entries
		%s
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?`, where)
	args = append(args, limit+1) // one extra to know whether a next page exists

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e      Entry
			result sql.NullString
			gen    int64
			at     int64
		)
		if err := rows.Scan(&e.ID, &e.CallID, &e.Operation, &e.Path, &e.Outcome, &e.TxHash, &result,
			&e.ErrorCode, &e.Error, &e.SchemaDigest, &gen, &e.Superseded, &at); err != nil {
			return nil, "", fmt.Errorf("scanning journal entry: %w", err)
		}
		if result.Valid {
			e.Result = []byte(result.String)
		}
		e.Generation = uint64(gen)
		e.OccurredAt = time.Unix(0, at).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("reading journal: %w", err)
	}

	var next string
	if len(entries) > limit {
		entries = entries[:limit]
		next = encodeCursor(entries[len(entries)-1])
	}
	return entries, next, nil
}
