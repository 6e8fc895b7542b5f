package emit

import "context"

// NullEmitter implements Emitter by discarding every event. Useful when
// observability overhead is unwanted, or to disable emission entirely
// without changing caller code.
type NullEmitter struct{}

// NewNullEmitter returns a NullEmitter.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards event.
func (n *NullEmitter) Emit(event Event) {}

// EmitBatch discards events.
func (n *NullEmitter) EmitBatch(_ context.Context, events []Event) error {
	return nil
}

// Flush is a no-op: there is nothing buffered to drain.
func (n *NullEmitter) Flush(_ context.Context) error {
	return nil
}
