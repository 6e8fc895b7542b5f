package tool

import (
	"context"
	"errors"
	"testing"
)

func TestMockTool_Name(t *testing.T) {
	if (&MockTool{ToolName: "search_web"}).Name() != "search_web" {
		t.Error("Name() did not return configured ToolName")
	}
}

func TestMockTool_ResponseSequence(t *testing.T) {
	mock := &MockTool{Responses: []map[string]interface{}{{"result": 1}, {"result": 2}}}
	input := map[string]interface{}{"op": "add"}

	for _, want := range []int{1, 2, 2} {
		out, err := mock.Call(context.Background(), input)
		if err != nil {
			t.Fatalf("Call: %v", err)
		}
		if out["result"] != want {
			t.Errorf("result = %v, want %v", out["result"], want)
		}
	}
}

func TestMockTool_NoResponsesConfigured(t *testing.T) {
	mock := &MockTool{ToolName: "no-input"}
	out, err := mock.Call(context.Background(), nil)
	if err != nil || len(out) != 0 {
		t.Errorf("Call with no responses = %v, %v", out, err)
	}
}

func TestMockTool_ErrorTakesPrecedence(t *testing.T) {
	wantErr := errors.New("tool execution failed")
	mock := &MockTool{Err: wantErr, Responses: []map[string]interface{}{{"result": "should not return"}}}

	_, err := mock.Call(context.Background(), map[string]interface{}{"test": "input"})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
	if mock.CallCount() != 1 {
		t.Errorf("CallCount = %d, want 1 (errors still record the call)", mock.CallCount())
	}
}

func TestMockTool_CallHistory(t *testing.T) {
	mock := &MockTool{ToolName: "echo"}

	_, _ = mock.Call(context.Background(), map[string]interface{}{"id": 1})
	_, _ = mock.Call(context.Background(), map[string]interface{}{"id": 2})

	if len(mock.Calls) != 2 {
		t.Fatalf("len(Calls) = %d, want 2", len(mock.Calls))
	}
	if mock.Calls[0].Input["id"] != 1 || mock.Calls[1].Input["id"] != 2 {
		t.Errorf("Calls = %+v", mock.Calls)
	}
}

func TestMockTool_Reset(t *testing.T) {
	mock := &MockTool{Responses: []map[string]interface{}{{"result": 1}, {"result": 2}}}

	_, _ = mock.Call(context.Background(), nil)
	mock.Reset()

	if mock.CallCount() != 0 {
		t.Errorf("CallCount after Reset = %d, want 0", mock.CallCount())
	}
	out, _ := mock.Call(context.Background(), nil)
	if out["result"] != 1 {
		t.Errorf("result after Reset = %v, want 1 (response index should rewind)", out["result"])
	}
}

func TestMockTool_Concurrency(t *testing.T) {
	mock := &MockTool{Responses: []map[string]interface{}{{"status": "success"}}}

	const goroutines = 10
	done := make(chan bool, goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			_, _ = mock.Call(context.Background(), map[string]interface{}{"id": id})
			done <- true
		}(i)
	}
	for i := 0; i < goroutines; i++ {
		<-done
	}
	if mock.CallCount() != goroutines {
		t.Errorf("CallCount = %d, want %d", mock.CallCount(), goroutines)
	}
}
