package engine

import (
	"sync"
	"time"
)

// WorkflowState is a thread's per-execution mutable state. Every mutation
// through StateManager produces a fresh value; a WorkflowState obtained
// from GetState must never observe a later update (copy-on-write).
type WorkflowState struct {
	WorkflowID     string
	CurrentNodeID  string // empty means unset
	Data           map[string]any
	Metadata       map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// clone returns a deep-enough copy: Data and Metadata get fresh maps so
// callers holding an earlier WorkflowState never see subsequent writes.
func (s WorkflowState) clone() WorkflowState {
	data := make(map[string]any, len(s.Data))
	for k, v := range s.Data {
		data[k] = v
	}
	meta := make(map[string]string, len(s.Metadata))
	for k, v := range s.Metadata {
		meta[k] = v
	}
	s.Data = data
	s.Metadata = meta
	return s
}

// StateManager maintains a process-local threadId → WorkflowState map. All
// methods are safe for concurrent use; one RWMutex guards the map for all
// threads.
type StateManager struct {
	mu     sync.RWMutex
	states map[string]*WorkflowState
}

// NewStateManager returns an empty StateManager.
func NewStateManager() *StateManager {
	return &StateManager{states: make(map[string]*WorkflowState)}
}

// Initialize creates a fresh WorkflowState for threadID, replacing any
// prior state for that thread.
func (m *StateManager) Initialize(threadID, workflowID string, initialData map[string]any) WorkflowState {
	data := make(map[string]any, len(initialData))
	for k, v := range initialData {
		data[k] = v
	}
	now := time.Now()
	s := &WorkflowState{
		WorkflowID: workflowID,
		Data:       data,
		Metadata:   make(map[string]string),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.mu.Lock()
	m.states[threadID] = s
	m.mu.Unlock()
	return s.clone()
}

// GetState returns the current state for threadID, or ErrStateMissing.
func (m *StateManager) GetState(threadID string) (WorkflowState, error) {
	m.mu.RLock()
	s, ok := m.states[threadID]
	m.mu.RUnlock()
	if !ok {
		return WorkflowState{}, ErrStateMissing
	}
	return s.clone(), nil
}

// UpdateState shallow-merges updates into data, bumping UpdatedAt. Keys in
// updates overwrite existing keys; other keys are untouched.
func (m *StateManager) UpdateState(threadID string, updates map[string]any) (WorkflowState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[threadID]
	if !ok {
		return WorkflowState{}, ErrStateMissing
	}
	next := s.clone()
	for k, v := range updates {
		next.Data[k] = v
	}
	next.UpdatedAt = time.Now()
	m.states[threadID] = &next
	return next.clone(), nil
}

// SetCurrentNode sets the thread's current node id, bumping UpdatedAt.
func (m *StateManager) SetCurrentNode(threadID, nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[threadID]
	if !ok {
		return ErrStateMissing
	}
	next := s.clone()
	next.CurrentNodeID = nodeID
	next.UpdatedAt = time.Now()
	m.states[threadID] = &next
	return nil
}

// ClearState removes the stored state for threadID. Clearing a thread with
// no state is a no-op.
func (m *StateManager) ClearState(threadID string) {
	m.mu.Lock()
	delete(m.states, threadID)
	m.mu.Unlock()
}
