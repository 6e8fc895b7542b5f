// Package store defines the repository contracts the engine and session
// layers depend on: SessionRepository, ThreadRepository,
// WorkflowRepository, and the optional durable CheckpointStore.
// Implementations live outside the core — this package holds only the
// interfaces plus an in-memory CheckpointStore and SQL-backed stores
// suitable for single-process durability beyond the engine's lifetime.
package store

import (
	"context"
	"time"
)

// SessionRecord is the persisted shape of a Session, a JSON
// dictionary with RFC 3339 timestamps when durability is implemented.
type SessionRecord struct {
	ID               string
	OwnerID          string
	Status           string
	Config           map[string]any
	SharedResources  map[string]any
	ThreadIDs        []string
	ParallelStrategy string
	LastActivityAt   time.Time
	MessageCount     int
}

// SessionRepository is the durable-storage contract for sessions.
type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*SessionRecord, bool, error)
	FindByIDOrFail(ctx context.Context, id string) (*SessionRecord, error)
	Save(ctx context.Context, s *SessionRecord) error
	Exists(ctx context.Context, id string) (bool, error)
	FindSessionsForUser(ctx context.Context, ownerID string) ([]*SessionRecord, error)
	FindSessionsNeedingCleanup(ctx context.Context, idleAfter time.Duration) ([]*SessionRecord, error)
	Delete(ctx context.Context, id string) error
}

// ThreadRecord is the persisted shape of a Thread.
type ThreadRecord struct {
	ID           string
	SessionID    string
	WorkflowID   string
	Priority     int
	Status       string
	Progress     int
	CurrentStep  string
	StartedAt    time.Time
	CompletedAt  time.Time
	ErrorMessage string
	RetryCount   int
}

// ThreadRepository is the durable-storage contract for threads.
type ThreadRepository interface {
	FindByID(ctx context.Context, id string) (*ThreadRecord, bool, error)
	FindByIDOrFail(ctx context.Context, id string) (*ThreadRecord, error)
	Save(ctx context.Context, t *ThreadRecord) error
	HasActiveThreads(ctx context.Context, sessionID string) (bool, error)
	FindBySessionID(ctx context.Context, sessionID string) ([]*ThreadRecord, error)
	Delete(ctx context.Context, id string) error
}

// WorkflowRecord is the persisted shape of a Workflow definition.
type WorkflowRecord struct {
	ID     string
	Nodes  map[string]any
	Edges  map[string]any
	Status string
}

// WorkflowRepository resolves a workflow id to its immutable snapshot.
type WorkflowRepository interface {
	FindByID(ctx context.Context, id string) (*WorkflowRecord, bool, error)
}

// CheckpointRecord is the persisted shape of a Checkpoint.
type CheckpointRecord struct {
	ID            string
	ThreadID      string
	WorkflowID    string
	CurrentNodeID string
	Data          map[string]any
	Step          int
	CreatedAt     time.Time
	Metadata      map[string]any
}

// CheckpointStore is the optional durability contract for checkpoints
//, used when an engine.CheckpointManager's in-process retention
// should survive process restarts.
type CheckpointStore interface {
	Put(ctx context.Context, cp *CheckpointRecord) error
	Get(ctx context.Context, id string) (*CheckpointRecord, bool, error)
	ListByThread(ctx context.Context, threadID string) ([]*CheckpointRecord, error)
	Evict(ctx context.Context, id string) error
	Close() error
}
