package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/flowthread/workflow/engine"
)

// transformExecutor applies a fixed fn to the scope's data and always
// succeeds. It grounds the "data-transform" node type used by the seed
// scenarios.
type transformExecutor struct {
	fn func(data map[string]any) map[string]any
}

func (t transformExecutor) CanExecute(context.Context, engine.NodeDescriptor, engine.Scope) bool {
	return true
}

func (t transformExecutor) Execute(_ context.Context, _ engine.NodeDescriptor, scope engine.Scope) engine.NodeResult {
	return engine.NodeResult{Output: t.fn(scope.Data), Success: true}
}

// flakyExecutor fails the first failTimes calls, then succeeds.
type flakyExecutor struct {
	failTimes int
	calls     int
}

func (f *flakyExecutor) CanExecute(context.Context, engine.NodeDescriptor, engine.Scope) bool {
	return true
}

func (f *flakyExecutor) Execute(context.Context, engine.NodeDescriptor, engine.Scope) engine.NodeResult {
	f.calls++
	if f.calls <= f.failTimes {
		return engine.NodeResult{Success: false}
	}
	return engine.NodeResult{Success: true, Output: map[string]any{"ok": true}}
}

func buildLinearWorkflow() *engine.Workflow {
	wf := engine.NewWorkflow("wf-linear")
	wf.AddNode(engine.NodeDescriptor{ID: "start", Type: "noop", IsStart: true})
	wf.AddNode(engine.NodeDescriptor{ID: "A", Type: "transform-a"})
	wf.AddNode(engine.NodeDescriptor{ID: "B", Type: "transform-b"})
	wf.AddNode(engine.NodeDescriptor{ID: "end", Type: "noop"})
	wf.AddEdge(engine.Edge{ID: "e1", From: "start", To: "A", Kind: engine.EdgeNormal})
	wf.AddEdge(engine.Edge{ID: "e2", From: "A", To: "B", Kind: engine.EdgeNormal})
	wf.AddEdge(engine.Edge{ID: "e3", From: "B", To: "end", Kind: engine.EdgeNormal})
	return wf
}

func TestExecute_LinearHappyPath(t *testing.T) {
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

	eng, err := engine.New(registry)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := eng.Execute(context.Background(), wf, "thread-1", map[string]any{"x": 1})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Status != engine.StatusCompleted {
		t.Fatalf("status = %v, want completed", result.Status)
	}
	if result.ExecutedNodes != 4 {
		t.Fatalf("executedNodes = %d, want 4", result.ExecutedNodes)
	}
	if got := result.FinalState.Data["x"]; got != 2 {
		t.Fatalf("final x = %v, want 2", got)
	}
	if got := result.FinalState.Data["y"]; got != 4 {
		t.Fatalf("final y = %v, want 4", got)
	}
}

func TestExecute_ConditionalRouting(t *testing.T) {
	wf := engine.NewWorkflow("wf-cond")
	wf.AddNode(engine.NodeDescriptor{ID: "start", Type: "noop", IsStart: true})
	wf.AddNode(engine.NodeDescriptor{ID: "cond", Type: "noop"})
	wf.AddNode(engine.NodeDescriptor{ID: "A", Type: "noop"})
	wf.AddNode(engine.NodeDescriptor{ID: "B", Type: "noop"})
	wf.AddNode(engine.NodeDescriptor{ID: "end", Type: "noop"})
	wf.AddEdge(engine.Edge{ID: "e1", From: "start", To: "cond", Kind: engine.EdgeNormal})
	wf.AddEdge(engine.Edge{ID: "e2", From: "cond", To: "A", Kind: engine.EdgeNormal, Guard: "state.data.x > 0"})
	wf.AddEdge(engine.Edge{ID: "e3", From: "cond", To: "B", Kind: engine.EdgeDefault})
	wf.AddEdge(engine.Edge{ID: "e4", From: "A", To: "end", Kind: engine.EdgeNormal})
	wf.AddEdge(engine.Edge{ID: "e5", From: "B", To: "end", Kind: engine.EdgeNormal})

	noop := transformExecutor{fn: func(d map[string]any) map[string]any { return nil }}
	registry := engine.MapRegistry{"noop": noop}

	eng, err := engine.New(registry)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := eng.Execute(context.Background(), wf, "thread-2", map[string]any{"x": -1})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Status != engine.StatusCompleted {
		t.Fatalf("status = %v, want completed", result.Status)
	}
	if result.ExecutedNodes != 4 {
		t.Fatalf("executedNodes = %d, want 4 (start, cond, B, end)", result.ExecutedNodes)
	}
}

func TestExecute_RetryThenSucceed(t *testing.T) {
	wf := engine.NewWorkflow("wf-retry")
	wf.AddNode(engine.NodeDescriptor{ID: "A", Type: "flaky", IsStart: true})
	wf.AddNode(engine.NodeDescriptor{ID: "end", Type: "noop"})
	wf.AddEdge(engine.Edge{ID: "e1", From: "A", To: "end", Kind: engine.EdgeNormal})

	flaky := &flakyExecutor{failTimes: 2}
	registry := engine.MapRegistry{
		"flaky": flaky,
		"noop":  transformExecutor{fn: func(d map[string]any) map[string]any { return nil }},
	}

	eng, err := engine.New(registry)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := eng.Execute(context.Background(), wf, "thread-3", nil,
		engine.WithMaxNodeRetries(2), engine.WithNodeRetryDelay(0))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Status != engine.StatusCompleted {
		t.Fatalf("status = %v, want completed", result.Status)
	}
	if result.ExecutedNodes != 2 {
		t.Fatalf("executedNodes = %d, want 2 (A counted once, end)", result.ExecutedNodes)
	}
	records := eng.History().QueryByNode("thread-3", "A")
	if len(records) != 3 {
		t.Fatalf("history entries for A = %d, want 3 (2 failures + 1 success)", len(records))
	}
}

// slowExecutor blocks until ctx is done or d elapses.
type slowExecutor struct{ d time.Duration }

func (s slowExecutor) CanExecute(context.Context, engine.NodeDescriptor, engine.Scope) bool {
	return true
}

func (s slowExecutor) Execute(_ context.Context, _ engine.NodeDescriptor, scope engine.Scope) engine.NodeResult {
	select {
	case <-time.After(s.d):
		return engine.NodeResult{Success: true}
	case <-scope.Cancelled:
		return engine.NodeResult{Success: false, Err: context.Canceled}
	}
}

func TestExecute_CancelMidFlight(t *testing.T) {
	wf := engine.NewWorkflow("wf-cancel")
	prev := "start"
	wf.AddNode(engine.NodeDescriptor{ID: prev, Type: "slow", IsStart: true})
	for i := 0; i < 9; i++ {
		id := "n" + string(rune('1'+i))
		wf.AddNode(engine.NodeDescriptor{ID: id, Type: "slow"})
		wf.AddEdge(engine.Edge{ID: "e-" + id, From: prev, To: id, Kind: engine.EdgeNormal})
		prev = id
	}

	registry := engine.MapRegistry{"slow": slowExecutor{d: 100 * time.Millisecond}}
	eng, err := engine.New(registry)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan struct{})
	var result engine.WorkflowExecutionResult
	go func() {
		result, err = eng.Execute(context.Background(), wf, "thread-4", nil)
		close(done)
	}()

	time.Sleep(250 * time.Millisecond)
	controller, ok := eng.Controllers().Get("thread-4")
	if !ok {
		t.Fatalf("controller not registered for thread-4")
	}
	controller.Cancel()
	<-done

	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Status != engine.StatusCancelled {
		t.Fatalf("status = %v, want cancelled", result.Status)
	}
}
