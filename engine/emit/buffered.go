package emit

import (
	"context"
	"sync"
)

// BufferedEmitter implements Emitter by storing events in memory, indexed
// by thread ID, with optional filtering for later inspection. Useful for
// tests and for dashboards that want to query a thread's recent history
// without a persistent store.
//
// BufferedEmitter keeps every event it has ever seen; callers that run
// long-lived threads should call Clear periodically to bound memory use.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event
}

// HistoryFilter narrows GetHistoryWithFilter's result. Zero-value fields
// are unconstrained; all set fields combine with AND logic.
type HistoryFilter struct {
	NodeID  string
	Msg     string
	MinStep *int
	MaxStep *int
}

// NewBufferedEmitter returns an empty, ready-to-use BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{
		events: make(map[string][]Event),
	}
}

// Emit implements Emitter.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.ThreadID] = append(b.events[event.ThreadID], event)
}

// EmitBatch implements Emitter by emitting each event in order.
func (b *BufferedEmitter) EmitBatch(_ context.Context, events []Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, event := range events {
		b.events[event.ThreadID] = append(b.events[event.ThreadID], event)
	}
	return nil
}

// Flush is a no-op: BufferedEmitter holds events in memory, there is
// nothing to drain to a backend.
func (b *BufferedEmitter) Flush(_ context.Context) error {
	return nil
}

// GetHistory returns a thread's events in emission order. Returns an
// empty, non-nil slice if the thread has no recorded events.
func (b *BufferedEmitter) GetHistory(threadID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[threadID]
	result := make([]Event, len(events))
	copy(result, events)
	return result
}

// GetHistoryWithFilter returns a thread's events matching filter, in
// emission order.
func (b *BufferedEmitter) GetHistoryWithFilter(threadID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[threadID]
	result := make([]Event, 0, len(events))
	for _, event := range events {
		if b.matchesFilter(event, filter) {
			result = append(result, event)
		}
	}
	return result
}

func (b *BufferedEmitter) matchesFilter(event Event, filter HistoryFilter) bool {
	if filter.NodeID != "" && event.NodeID != filter.NodeID {
		return false
	}
	if filter.Msg != "" && event.Msg != filter.Msg {
		return false
	}
	if filter.MinStep != nil && event.Step < *filter.MinStep {
		return false
	}
	if filter.MaxStep != nil && event.Step > *filter.MaxStep {
		return false
	}
	return true
}

// Clear discards a thread's stored events. An empty threadID clears
// every thread's history.
func (b *BufferedEmitter) Clear(threadID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if threadID == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, threadID)
}
