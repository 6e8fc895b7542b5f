package model

import (
	"context"
	"errors"
	"testing"
)

func TestMockChatModel_ResponseSequence(t *testing.T) {
	mock := &MockChatModel{Responses: []ChatOut{{Text: "first"}, {Text: "second"}}}
	messages := []Message{{Role: RoleUser, Content: "test"}}

	for _, want := range []string{"first", "second", "second"} {
		out, err := mock.Chat(context.Background(), messages, nil)
		if err != nil {
			t.Fatalf("Chat: %v", err)
		}
		if out.Text != want {
			t.Errorf("Text = %q, want %q", out.Text, want)
		}
	}
}

func TestMockChatModel_NoResponsesConfigured(t *testing.T) {
	mock := &MockChatModel{}
	out, err := mock.Chat(context.Background(), []Message{{Role: RoleUser, Content: "test"}}, nil)
	if err != nil || out.Text != "" || len(out.ToolCalls) != 0 {
		t.Errorf("Chat with no responses = %+v, %v", out, err)
	}
}

func TestMockChatModel_ErrorTakesPrecedence(t *testing.T) {
	wantErr := errors.New("simulated api error")
	mock := &MockChatModel{Err: wantErr, Responses: []ChatOut{{Text: "should not return"}}}

	_, err := mock.Chat(context.Background(), []Message{{Role: RoleUser, Content: "test"}}, nil)
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
	if mock.CallCount() != 1 {
		t.Errorf("CallCount = %d, want 1 (errors still record the call)", mock.CallCount())
	}
}

func TestMockChatModel_CallHistory(t *testing.T) {
	mock := &MockChatModel{Responses: []ChatOut{{Text: "ok"}}}
	tools := []ToolSpec{{Name: "search", Description: "search"}}

	_, _ = mock.Chat(context.Background(), []Message{{Role: RoleUser, Content: "first"}}, nil)
	_, _ = mock.Chat(context.Background(), []Message{{Role: RoleUser, Content: "second"}}, tools)

	if len(mock.Calls) != 2 {
		t.Fatalf("len(Calls) = %d, want 2", len(mock.Calls))
	}
	if mock.Calls[0].Messages[0].Content != "first" || mock.Calls[0].Tools != nil {
		t.Errorf("Calls[0] = %+v", mock.Calls[0])
	}
	if mock.Calls[1].Messages[0].Content != "second" || len(mock.Calls[1].Tools) != 1 {
		t.Errorf("Calls[1] = %+v", mock.Calls[1])
	}
}

func TestMockChatModel_Reset(t *testing.T) {
	mock := &MockChatModel{Responses: []ChatOut{{Text: "first"}, {Text: "second"}}}
	messages := []Message{{Role: RoleUser, Content: "test"}}

	_, _ = mock.Chat(context.Background(), messages, nil)
	mock.Reset()

	if mock.CallCount() != 0 {
		t.Errorf("CallCount after Reset = %d, want 0", mock.CallCount())
	}
	out, _ := mock.Chat(context.Background(), messages, nil)
	if out.Text != "first" {
		t.Errorf("Text after Reset = %q, want %q (response index should rewind)", out.Text, "first")
	}
}

func TestMockChatModel_ToolCalls(t *testing.T) {
	mock := &MockChatModel{Responses: []ChatOut{{
		Text:      "let me search for that",
		ToolCalls: []ToolCall{{Name: "search", Input: map[string]interface{}{"query": "go"}}},
	}}}

	out, err := mock.Chat(context.Background(), []Message{{Role: RoleUser, Content: "find go"}}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].Name != "search" {
		t.Errorf("ToolCalls = %+v", out.ToolCalls)
	}
}

func TestMockChatModel_Concurrency(t *testing.T) {
	mock := &MockChatModel{Responses: []ChatOut{{Text: "ok"}}}
	messages := []Message{{Role: RoleUser, Content: "test"}}

	const goroutines = 10
	done := make(chan bool, goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			_, _ = mock.Chat(context.Background(), messages, nil)
			done <- true
		}()
	}
	for i := 0; i < goroutines; i++ {
		<-done
	}
	if mock.CallCount() != goroutines {
		t.Errorf("CallCount = %d, want %d", mock.CallCount(), goroutines)
	}
}
