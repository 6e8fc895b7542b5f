package emit

import (
	"context"
	"testing"
)

// mockEmitter is a minimal Emitter implementation for interface-contract
// and behavior tests.
type mockEmitter struct {
	events []Event
}

func (m *mockEmitter) Emit(event Event) {
	m.events = append(m.events, event)
}

func (m *mockEmitter) EmitBatch(_ context.Context, events []Event) error {
	m.events = append(m.events, events...)
	return nil
}

func (m *mockEmitter) Flush(_ context.Context) error {
	return nil
}

func TestEmitter_InterfaceContract(_ *testing.T) {
	var _ Emitter = (*mockEmitter)(nil)
}

func TestEmitter_Emit(t *testing.T) {
	t.Run("emit single event", func(t *testing.T) {
		emitter := &mockEmitter{}
		emitter.Emit(Event{ThreadID: "thread-001", Step: 1, NodeID: "node1", Msg: "test_event"})

		if len(emitter.events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(emitter.events))
		}
		if emitter.events[0].Msg != "test_event" {
			t.Errorf("Msg = %q, want test_event", emitter.events[0].Msg)
		}
	})

	t.Run("emit multiple events preserves order", func(t *testing.T) {
		emitter := &mockEmitter{}
		for i := 1; i <= 3; i++ {
			emitter.Emit(Event{ThreadID: "thread-001", Step: i, Msg: "event"})
		}

		if len(emitter.events) != 3 {
			t.Fatalf("expected 3 events, got %d", len(emitter.events))
		}
		for i, event := range emitter.events {
			if event.Step != i+1 {
				t.Errorf("event %d: Step = %d, want %d", i, event.Step, i+1)
			}
		}
	})

	t.Run("emit with metadata", func(t *testing.T) {
		emitter := &mockEmitter{}
		emitter.Emit(Event{
			ThreadID: "thread-001",
			NodeID:   "llm",
			Msg:      "node_end",
			Meta:     map[string]interface{}{"tokens_out": 150, "duration_ms": 250},
		})

		meta := emitter.events[0].Meta
		if meta["tokens_out"] != 150 {
			t.Errorf("tokens_out = %v, want 150", meta["tokens_out"])
		}
		if meta["duration_ms"] != 250 {
			t.Errorf("duration_ms = %v, want 250", meta["duration_ms"])
		}
	})

	t.Run("emit zero value event does not panic", func(t *testing.T) {
		emitter := &mockEmitter{}
		emitter.Emit(Event{})

		if len(emitter.events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(emitter.events))
		}
	})
}

func TestEmitter_EmitBatch(t *testing.T) {
	emitter := &mockEmitter{}
	events := []Event{
		{ThreadID: "thread-001", Step: 1, Msg: "node_start"},
		{ThreadID: "thread-001", Step: 1, Msg: "node_end"},
	}

	if err := emitter.EmitBatch(context.Background(), events); err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}
	if len(emitter.events) != 2 {
		t.Errorf("expected 2 events, got %d", len(emitter.events))
	}
}
