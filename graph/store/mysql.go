package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL implementation of Store[S].
//
// It targets deployments where workflow history must outlive a single host:
// multiple engine processes sharing one database, operator tooling reading
// history out-of-band, and retention beyond process restarts.
//
// The DSN must include parseTime=true so timestamps scan correctly, e.g.
//
//	user:pass@tcp(localhost:3306)/workflows?parseTime=true
type MySQLStore[S any] struct {
	db  *sql.DB
	max int
}

// NewMySQLStore opens (and migrates) a MySQL-backed store with the default
// per-thread cap.
func NewMySQLStore[S any](dsn string) (*MySQLStore[S], error) {
	return NewMySQLStoreWithLimit[S](dsn, DefaultMaxSnapshots)
}

// NewMySQLStoreWithLimit opens a MySQL-backed store capping each thread's
// history at max snapshots. A max of 0 or less falls back to the default.
func NewMySQLStoreWithLimit[S any](dsn string, max int) (*MySQLStore[S], error) {
	if max <= 0 {
		max = DefaultMaxSnapshots
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS checkpoints (
			seq           BIGINT AUTO_INCREMENT PRIMARY KEY,
			checkpoint_id VARCHAR(64) NOT NULL UNIQUE,
			thread_id     VARCHAR(255) NOT NULL,
			next_nodes    JSON NOT NULL,
			state         JSON NOT NULL,
			metadata      JSON NOT NULL,
			config        JSON NOT NULL,
			created_at    BIGINT NOT NULL,
			INDEX idx_checkpoints_thread (thread_id)
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &MySQLStore[S]{db: db, max: max}, nil
}

// Close releases the underlying connection pool.
func (s *MySQLStore[S]) Close() error {
	return s.db.Close()
}

// Save inserts the snapshot and trims the thread's history to the cap in one
// transaction.
func (s *MySQLStore[S]) Save(ctx context.Context, threadID string, snap Snapshot[S]) error {
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

	// MySQL cannot subquery the table being deleted from directly, so the
	// survivors are materialized through a derived table.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM checkpoints
		WHERE thread_id = ? AND seq NOT IN (
			SELECT seq FROM (
				SELECT seq FROM checkpoints WHERE thread_id = ? ORDER BY seq DESC LIMIT ?
			) AS keep
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
func (s *MySQLStore[S]) Get(ctx context.Context, threadID, checkpointID string) (Snapshot[S], error) {
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
func (s *MySQLStore[S]) List(ctx context.Context, threadID string) ([]Snapshot[S], error) {
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
func (s *MySQLStore[S]) Clear(ctx context.Context, threadID string) error {
	if threadID == "" {
		return errEmptyThread("clear")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id = ?`, threadID); err != nil {
		return &CheckpointError{Op: "clear", ThreadID: threadID, Cause: err}
	}
	return nil
}

// Stats reports thread and snapshot counts.
func (s *MySQLStore[S]) Stats(ctx context.Context) (Stats, error) {
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
