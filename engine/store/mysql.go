package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLCheckpointStore is a MySQL/MariaDB-backed CheckpointStore, for
// production deployments where checkpoints must survive process
// restarts and be visible to more than one engine instance.
//
// DSN format: [username[:password]@][protocol[(address)]]/dbname[?params].
// Never hardcode credentials; read the DSN from the environment.
type MySQLCheckpointStore struct {
	db *sql.DB
}

// NewMySQLCheckpointStore opens a pooled MySQL connection and ensures
// the checkpoints table exists.
func NewMySQLCheckpointStore(dsn string) (*MySQLCheckpointStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	s := &MySQLCheckpointStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *MySQLCheckpointStore) createTables(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS checkpoints (
			id VARCHAR(255) PRIMARY KEY,
			thread_id VARCHAR(255) NOT NULL,
			workflow_id VARCHAR(255) NOT NULL,
			current_node_id VARCHAR(255) NOT NULL,
			step INT NOT NULL,
			data JSON NOT NULL,
			metadata JSON NOT NULL,
			created_at TIMESTAMP NOT NULL,
			INDEX idx_checkpoints_thread_id (thread_id)
		)
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *MySQLCheckpointStore) Put(ctx context.Context, cp *CheckpointRecord) error {
	data, err := json.Marshal(cp.Data)
	if err != nil {
		return fmt.Errorf("marshal checkpoint data: %w", err)
	}
	meta, err := json.Marshal(cp.Metadata)
	if err != nil {
		return fmt.Errorf("marshal checkpoint metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (id, thread_id, workflow_id, current_node_id, step, data, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			current_node_id = VALUES(current_node_id),
			step = VALUES(step),
			data = VALUES(data),
			metadata = VALUES(metadata)
	`, cp.ID, cp.ThreadID, cp.WorkflowID, cp.CurrentNodeID, cp.Step, string(data), string(meta), cp.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}

func (s *MySQLCheckpointStore) Get(ctx context.Context, id string) (*CheckpointRecord, bool, error) {
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

func (s *MySQLCheckpointStore) ListByThread(ctx context.Context, threadID string) ([]*CheckpointRecord, error) {
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

func (s *MySQLCheckpointStore) Evict(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM checkpoints WHERE id = ?", id)
	return err
}

func (s *MySQLCheckpointStore) Close() error {
	return s.db.Close()
}
