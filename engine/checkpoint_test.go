package engine_test

import (
	"context"
	"testing"

	"github.com/flowthread/workflow/engine"
)

func TestCheckpointManager_CreateRestoreImmutable(t *testing.T) {
	cm := engine.NewCheckpointManager()
	data := map[string]any{"x": 1}
	cp := cm.Create("t1", "wf1", "nodeA", data, 3, nil)

	// Mutate the caller's map after Create; the checkpoint must not see it.
	data["x"] = 999

	restored, err := cm.Restore(cp.ID)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Data["x"] != 1 {
		t.Fatalf("restored x = %v, want 1 (checkpoint must be immutable)", restored.Data["x"])
	}
	if restored.CurrentNodeID != "nodeA" || restored.Step != 3 {
		t.Fatalf("restored checkpoint fields mismatch: %+v", restored)
	}
}

func TestCheckpointManager_RestoreMissing(t *testing.T) {
	cm := engine.NewCheckpointManager()
	if _, err := cm.Restore("does-not-exist"); err != engine.ErrCheckpointNotFound {
		t.Fatalf("err = %v, want ErrCheckpointNotFound", err)
	}
}

func TestCheckpointManager_PerThreadEviction(t *testing.T) {
	cm := engine.NewCheckpointManagerWithCaps(2, 100)
	first := cm.Create("t1", "wf1", "n1", map[string]any{}, 0, nil)
	cm.Create("t1", "wf1", "n2", map[string]any{}, 1, nil)
	cm.Create("t1", "wf1", "n3", map[string]any{}, 2, nil)

	if _, err := cm.Restore(first.ID); err != engine.ErrCheckpointNotFound {
		t.Fatalf("oldest checkpoint should have been evicted, err = %v", err)
	}
	if list := cm.List("t1"); len(list) != 2 {
		t.Fatalf("len(List) = %d, want 2", len(list))
	}
}

func TestExecute_CheckpointResumeEquivalence(t *testing.T) {
	wf := buildLinearWorkflow()
	registry := engine.MapRegistry{
		"noop": transformExecutor{fn: func(d map[string]any) map[string]any { return nil }},
		"transform-a": transformExecutor{fn: func(d map[string]any) map[string]any {
			x, _ := d["x"].(int)
			return map[string]any{"x": x + 1}
		}},
		"transform-b": transformExecutor{fn: func(d map[string]any) map[string]any {
			x, _ := d["x"].(int)
			return map[string]any{"y": x * 2}
		}},
	}

	full, err := engine.New(registry)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	wantResult, err := full.Execute(context.Background(), wf, "thread-full", map[string]any{"x": 1}, engine.WithCheckpointInterval(1))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	split, err := engine.New(registry)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := split.Execute(context.Background(), wf, "thread-split", map[string]any{"x": 1},
		engine.WithCheckpointInterval(1), engine.WithMaxSteps(2)); err != nil {
		t.Fatalf("Execute (partial): %v", err)
	}
	cp, ok := split.Checkpoints().Latest("thread-split")
	if !ok {
		t.Fatalf("expected a checkpoint after partial run")
	}

	resumed, err := split.Resume(context.Background(), wf, "thread-split", cp.ID, engine.WithCheckpointInterval(1))
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}

	if resumed.FinalState.Data["x"] != wantResult.FinalState.Data["x"] ||
		resumed.FinalState.Data["y"] != wantResult.FinalState.Data["y"] {
		t.Fatalf("resumed final state %+v != full-run final state %+v", resumed.FinalState.Data, wantResult.FinalState.Data)
	}
}
