package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteCheckpointStore is a SQLite-backed CheckpointStore: a single-file
// WAL-mode database giving zero-setup, single-process durability, a fit
// for development and small deployments that want checkpoints to survive
// a process restart without standing up a separate database server.
//
// Schema:
//   - checkpoints: one row per Checkpoint, keyed by id, indexed by
//     thread_id for ListByThread.
type SQLiteCheckpointStore struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewSQLiteCheckpointStore opens (creating if necessary) a SQLite
// database at path and prepares it to store checkpoints. Use ":memory:"
// for an ephemeral, process-local database.
func NewSQLiteCheckpointStore(path string) (*SQLiteCheckpointStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite connection: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %q: %w", pragma, err)
		}
	}

	s := &SQLiteCheckpointStore{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteCheckpointStore) createTables(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS checkpoints (
			id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			workflow_id TEXT NOT NULL,
			current_node_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			data TEXT NOT NULL,
			metadata TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_checkpoints_thread_id ON checkpoints(thread_id)")
	return err
}

func (s *SQLiteCheckpointStore) Put(ctx context.Context, cp *CheckpointRecord) error {
	data, err := json.Marshal(cp.Data)
	if err != nil {
		return fmt.Errorf("marshal checkpoint data: %w", err)
	}
	meta, err := json.Marshal(cp.Metadata)
	if err != nil {
		return fmt.Errorf("marshal checkpoint metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (id, thread_id, workflow_id, current_node_id, step, data, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			current_node_id = excluded.current_node_id,
			step = excluded.step,
			data = excluded.data,
			metadata = excluded.metadata
	`, cp.ID, cp.ThreadID, cp.WorkflowID, cp.CurrentNodeID, cp.Step, string(data), string(meta), cp.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}

func (s *SQLiteCheckpointStore) Get(ctx context.Context, id string) (*CheckpointRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRowContext(ctx, `
		SELECT id, thread_id, workflow_id, current_node_id, step, data, metadata, created_at
		FROM checkpoints WHERE id = ?
	`, id)
	cp, err := scanCheckpoint(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("scan checkpoint: %w", err)
	}
	return cp, true, nil
}

func (s *SQLiteCheckpointStore) ListByThread(ctx context.Context, threadID string) ([]*CheckpointRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, thread_id, workflow_id, current_node_id, step, data, metadata, created_at
		FROM checkpoints WHERE thread_id = ? ORDER BY step ASC
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer rows.Close()

	var out []*CheckpointRecord
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkpoint row: %w", err)
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

func (s *SQLiteCheckpointStore) Evict(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, "DELETE FROM checkpoints WHERE id = ?", id)
	return err
}

func (s *SQLiteCheckpointStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row rowScanner) (*CheckpointRecord, error) {
	var cp CheckpointRecord
	var data, meta string
	var createdAt time.Time
	if err := row.Scan(&cp.ID, &cp.ThreadID, &cp.WorkflowID, &cp.CurrentNodeID, &cp.Step, &data, &meta, &createdAt); err != nil {
		return nil, err
	}
	cp.CreatedAt = createdAt
	if err := json.Unmarshal([]byte(data), &cp.Data); err != nil {
		return nil, fmt.Errorf("unmarshal data: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &cp.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &cp, nil
}
