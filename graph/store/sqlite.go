package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store[S].
//
// It persists snapshot history in a single-file database. Designed for:
//   - Development and testing with zero setup
//   - Single-process workflows needing durable history
//   - Prototyping before migrating to a shared database
//
// SQLiteStore enables WAL mode so concurrent readers don't block on the
// single writer, and trims each thread's history transactionally on save.
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type SQLiteStore[S any] struct {
	db  *sql.DB
	max int
}

// NewSQLiteStore opens (and migrates) a SQLite-backed store at path with the
// default per-thread cap. Use ":memory:" for an ephemeral database.
//
// Example:
//
//	st, err := store.NewSQLiteStore[graph.State]("./workflows.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
func NewSQLiteStore[S any](path string) (*SQLiteStore[S], error) {
	return NewSQLiteStoreWithLimit[S](path, DefaultMaxSnapshots)
}

// NewSQLiteStoreWithLimit opens a SQLite-backed store capping each thread's
// history at max snapshots. A max of 0 or less falls back to the default.
func NewSQLiteStoreWithLimit[S any](path string, max int) (*SQLiteStore[S], error) {
	if max <= 0 {
		max = DefaultMaxSnapshots
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS checkpoints (
			seq           INTEGER PRIMARY KEY AUTOINCREMENT,
			checkpoint_id TEXT NOT NULL UNIQUE,
			thread_id     TEXT NOT NULL,
			next_nodes    TEXT NOT NULL,
			state         TEXT NOT NULL,
			metadata      TEXT NOT NULL,
			config        TEXT NOT NULL,
			created_at    INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_checkpoints_thread ON checkpoints(thread_id);
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore[S]{db: db, max: max}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore[S]) Close() error {
	return s.db.Close()
}

// Save inserts the snapshot and trims the thread's history to the cap in one
// transaction.
func (s *SQLiteStore[S]) Save(ctx context.Context, threadID string, snap Snapshot[S]) error {
	if threadID == "" {
		return errEmptyThread("save")
	}

	row, err := encodeSnapshot(snap)
	if err != nil {
		return &CheckpointError{Op: "save", ThreadID: threadID, Cause: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &CheckpointError{Op: "save", ThreadID: threadID, Cause: err}
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO checkpoints (checkpoint_id, thread_id, next_nodes, state, metadata, config, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, threadID, row.next, row.state, row.metadata, row.config, snap.CreatedAt.UnixNano(),
	); err != nil {
		return &CheckpointError{Op: "save", ThreadID: threadID, Cause: err}
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM checkpoints
		WHERE thread_id = ? AND seq NOT IN (
			SELECT seq FROM checkpoints WHERE thread_id = ? ORDER BY seq DESC LIMIT ?
		)`, threadID, threadID, s.max,
	); err != nil {
		return &CheckpointError{Op: "save", ThreadID: threadID, Cause: err}
	}

	if err := tx.Commit(); err != nil {
		return &CheckpointError{Op: "save", ThreadID: threadID, Cause: err}
	}
	return nil
}

// Get retrieves a snapshot by id, or the latest for the thread when
// checkpointID is empty.
func (s *SQLiteStore[S]) Get(ctx context.Context, threadID, checkpointID string) (Snapshot[S], error) {
	var zero Snapshot[S]
	if threadID == "" {
		return zero, errEmptyThread("get")
	}

	query := `
		SELECT checkpoint_id, thread_id, next_nodes, state, metadata, config, created_at
		FROM checkpoints WHERE thread_id = ?`
	args := []any{threadID}
	if checkpointID != "" {
		query += " AND checkpoint_id = ?"
		args = append(args, checkpointID)
	}
	query += " ORDER BY seq DESC LIMIT 1"

	snap, err := scanSnapshot[S](s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, &CheckpointError{Op: "get", ThreadID: threadID, Cause: err}
	}
	return snap, nil
}

// List returns the thread's snapshots oldest-first.
func (s *SQLiteStore[S]) List(ctx context.Context, threadID string) ([]Snapshot[S], error) {
	if threadID == "" {
		return nil, errEmptyThread("list")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT checkpoint_id, thread_id, next_nodes, state, metadata, config, created_at
		FROM checkpoints WHERE thread_id = ? ORDER BY seq ASC`, threadID)
	if err != nil {
		return nil, &CheckpointError{Op: "list", ThreadID: threadID, Cause: err}
	}
	defer func() { _ = rows.Close() }()

	var out []Snapshot[S]
	for rows.Next() {
		snap, err := scanSnapshot[S](rows)
		if err != nil {
			return nil, &CheckpointError{Op: "list", ThreadID: threadID, Cause: err}
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, &CheckpointError{Op: "list", ThreadID: threadID, Cause: err}
	}
	if out == nil {
		out = []Snapshot[S]{}
	}
	return out, nil
}

// Clear removes all snapshots for the thread.
func (s *SQLiteStore[S]) Clear(ctx context.Context, threadID string) error {
	if threadID == "" {
		return errEmptyThread("clear")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id = ?`, threadID); err != nil {
		return &CheckpointError{Op: "clear", ThreadID: threadID, Cause: err}
	}
	return nil
}

// Stats reports thread and snapshot counts.
func (s *SQLiteStore[S]) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{PerThread: make(map[string]int), MaxPerThread: s.max}

	rows, err := s.db.QueryContext(ctx, `SELECT thread_id, COUNT(*) FROM checkpoints GROUP BY thread_id`)
	if err != nil {
		return Stats{}, &CheckpointError{Op: "stats", Cause: err}
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var threadID string
		var count int
		if err := rows.Scan(&threadID, &count); err != nil {
			return Stats{}, &CheckpointError{Op: "stats", Cause: err}
		}
		stats.PerThread[threadID] = count
		stats.Snapshots += count
		stats.Threads++
	}
	if err := rows.Err(); err != nil {
		return Stats{}, &CheckpointError{Op: "stats", Cause: err}
	}
	return stats, nil
}

// snapshotRow holds the JSON-encoded columns of a snapshot.
type snapshotRow struct {
	next, state, metadata, config string
}

func encodeSnapshot[S any](snap Snapshot[S]) (snapshotRow, error) {
	next, err := json.Marshal(snap.Next)
	if err != nil {
		return snapshotRow{}, fmt.Errorf("marshal next: %w", err)
	}
	state, err := json.Marshal(snap.Values)
	if err != nil {
		return snapshotRow{}, fmt.Errorf("marshal state: %w", err)
	}
	metadata, err := json.Marshal(snap.Metadata)
	if err != nil {
		return snapshotRow{}, fmt.Errorf("marshal metadata: %w", err)
	}
	config, err := json.Marshal(snap.Config)
	if err != nil {
		return snapshotRow{}, fmt.Errorf("marshal config: %w", err)
	}
	return snapshotRow{next: string(next), state: string(state), metadata: string(metadata), config: string(config)}, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot[S any](row rowScanner) (Snapshot[S], error) {
	var snap Snapshot[S]
	var next, state, metadata, config string
	var createdAt int64

	if err := row.Scan(&snap.ID, &snap.ThreadID, &next, &state, &metadata, &config, &createdAt); err != nil {
		return snap, err
	}
	if err := json.Unmarshal([]byte(next), &snap.Next); err != nil {
		return snap, fmt.Errorf("unmarshal next: %w", err)
	}
	if err := json.Unmarshal([]byte(state), &snap.Values); err != nil {
		return snap, fmt.Errorf("unmarshal state: %w", err)
	}
	if err := json.Unmarshal([]byte(metadata), &snap.Metadata); err != nil {
		return snap, fmt.Errorf("unmarshal metadata: %w", err)
	}
	if err := json.Unmarshal([]byte(config), &snap.Config); err != nil {
		return snap, fmt.Errorf("unmarshal config: %w", err)
	}
	snap.CreatedAt = time.Unix(0, createdAt)
	return snap, nil
}
