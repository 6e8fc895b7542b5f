// Package emit provides event emission and observability for workflow execution.
package emit

import "context"

// Emitter receives observability events produced while a thread runs.
// Implementations must be safe for concurrent use and must not block or
// panic: a slow or failing backend should never stall thread execution.
type Emitter interface {
	// Emit sends a single event. Implementations that need to batch or
	// buffer should do so internally rather than blocking the caller.
	Emit(event Event)

	// EmitBatch sends multiple events in one call, preserving order.
	// Returns an error only for catastrophic failures; individual event
	// delivery failures should be logged, not returned.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until all buffered events have been delivered or the
	// context expires. Safe to call more than once.
	Flush(ctx context.Context) error
}
