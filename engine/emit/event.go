package emit

// Event is an observability event emitted while a thread executes a
// workflow: node lifecycle transitions, retries, and terminal outcomes.
type Event struct {
	// ThreadID identifies the thread that emitted this event.
	ThreadID string

	// Step is the thread's sequential step counter. The engine numbers
	// steps from 0 and emits only node-level events.
	Step int

	// NodeID identifies which node emitted this event. Empty for
	// thread-level events.
	NodeID string

	// Msg names the event. The engine sets it to a node execution status,
	// "success" or "failure", once per attempt.
	Msg string

	// Meta carries event-specific structured data. Common keys:
	// "duration_ms", "error", "attempt", "tokens_in", "tokens_out".
	Meta map[string]interface{}
}
