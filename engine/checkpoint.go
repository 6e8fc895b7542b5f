package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCheckpointsPerThread and DefaultGlobalCheckpoints are the eviction
// caps CheckpointManager enforces when constructed with NewCheckpointManager.
const (
	DefaultCheckpointsPerThread = 10
	DefaultGlobalCheckpoints    = 1000
)

// Checkpoint is an immutable snapshot of a thread's WorkflowState.Data
// taken between two node executions. State updates that replace top-level
// keys do not change a stored checkpoint; nested maps and slices inside
// Data are not copied and are shared with the state they came from.
type Checkpoint struct {
	ID            string
	ThreadID      string
	WorkflowID    string
	CurrentNodeID string
	Data          map[string]any
	Step          int
	CreatedAt     time.Time
	Metadata      map[string]any
}

var checkpointSeq uint64

// computeCheckpointID derives an id from the SHA-256 of the thread, step,
// current node and a process-wide sequence number, so every call returns
// a new id, even for a repeated (thread, step) pair.
func computeCheckpointID(threadID string, step int, nodeID string) string {
	seq := atomic.AddUint64(&checkpointSeq, 1)
	h := sha256.New()
	fmt.Fprintf(h, "%s:%d:%s:%d", threadID, step, nodeID, seq)
	return "ckpt_" + hex.EncodeToString(h.Sum(nil))[:16]
}

// CheckpointManager stores threadId → ordered list of Checkpoint (oldest
// first) and enforces per-thread and global retention caps by LRU-by-
// creation-time eviction.
type CheckpointManager struct {
	mu              sync.Mutex
	perThreadCap    int
	globalCap       int
	byThread        map[string][]*Checkpoint
	globalOrder     []*Checkpoint // creation order across all threads
	byID            map[string]*Checkpoint
}

// NewCheckpointManager returns a CheckpointManager using the default caps
// (10 per thread, 1000 globally).
func NewCheckpointManager() *CheckpointManager {
	return NewCheckpointManagerWithCaps(DefaultCheckpointsPerThread, DefaultGlobalCheckpoints)
}

// NewCheckpointManagerWithCaps returns a CheckpointManager with custom caps.
func NewCheckpointManagerWithCaps(perThreadCap, globalCap int) *CheckpointManager {
	if perThreadCap <= 0 {
		perThreadCap = DefaultCheckpointsPerThread
	}
	if globalCap <= 0 {
		globalCap = DefaultGlobalCheckpoints
	}
	return &CheckpointManager{
		perThreadCap: perThreadCap,
		globalCap:    globalCap,
		byThread:     make(map[string][]*Checkpoint),
		byID:         make(map[string]*Checkpoint),
	}
}

// Create copies data into a new Checkpoint one level deep (top-level keys
// are copied; nested maps and slices are shared with the caller), assigns
// it a fresh id, and
// enforces the per-thread and global caps by evicting the oldest
// checkpoints first.
func (m *CheckpointManager) Create(threadID, workflowID, currentNodeID string, data map[string]any, step int, metadata map[string]any) *Checkpoint {
	snap := make(map[string]any, len(data))
	for k, v := range data {
		snap[k] = v
	}
	metaCopy := make(map[string]any, len(metadata))
	for k, v := range metadata {
		metaCopy[k] = v
	}

	cp := &Checkpoint{
		ID:            computeCheckpointID(threadID, step, currentNodeID),
		ThreadID:      threadID,
		WorkflowID:    workflowID,
		CurrentNodeID: currentNodeID,
		Data:          snap,
		Step:          step,
		CreatedAt:     time.Now(),
		Metadata:      metaCopy,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.byThread[threadID] = append(m.byThread[threadID], cp)
	m.globalOrder = append(m.globalOrder, cp)
	m.byID[cp.ID] = cp

	m.evictThreadLocked(threadID)
	m.evictGlobalLocked()

	return cp
}

func (m *CheckpointManager) evictThreadLocked(threadID string) {
	list := m.byThread[threadID]
	for len(list) > m.perThreadCap {
		oldest := list[0]
		list = list[1:]
		delete(m.byID, oldest.ID)
		m.removeFromGlobalLocked(oldest.ID)
	}
	m.byThread[threadID] = list
}

func (m *CheckpointManager) evictGlobalLocked() {
	for len(m.globalOrder) > m.globalCap {
		oldest := m.globalOrder[0]
		m.globalOrder = m.globalOrder[1:]
		delete(m.byID, oldest.ID)
		m.removeFromThreadLocked(oldest.ThreadID, oldest.ID)
	}
}

func (m *CheckpointManager) removeFromGlobalLocked(id string) {
	for i, cp := range m.globalOrder {
		if cp.ID == id {
			m.globalOrder = append(m.globalOrder[:i], m.globalOrder[i+1:]...)
			return
		}
	}
}

func (m *CheckpointManager) removeFromThreadLocked(threadID, id string) {
	list := m.byThread[threadID]
	for i, cp := range list {
		if cp.ID == id {
			m.byThread[threadID] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Restore returns the checkpoint's snapshot data (a fresh top-level copy), or
// ErrCheckpointNotFound.
func (m *CheckpointManager) Restore(checkpointID string) (*Checkpoint, error) {
	m.mu.Lock()
	cp, ok := m.byID[checkpointID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrCheckpointNotFound
	}
	out := *cp
	data := make(map[string]any, len(cp.Data))
	for k, v := range cp.Data {
		data[k] = v
	}
	out.Data = data
	return &out, nil
}

// Latest returns the most recently created checkpoint for threadID, or
// false if there is none.
func (m *CheckpointManager) Latest(threadID string) (*Checkpoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.byThread[threadID]
	if len(list) == 0 {
		return nil, false
	}
	return list[len(list)-1], true
}

// List returns all checkpoints currently retained for threadID, oldest first.
func (m *CheckpointManager) List(threadID string) []*Checkpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.byThread[threadID]
	out := make([]*Checkpoint, len(list))
	copy(out, list)
	return out
}

// EvictAll removes every checkpoint retained for threadID, e.g. on thread
// cleanup once its state is no longer needed.
func (m *CheckpointManager) EvictAll(threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cp := range m.byThread[threadID] {
		delete(m.byID, cp.ID)
		m.removeFromGlobalLocked(cp.ID)
	}
	delete(m.byThread, threadID)
}
