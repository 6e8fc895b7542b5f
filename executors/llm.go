// Package executors provides reference NodeExecutor implementations that
// wrap the model and tool adapters for use inside workflow nodes. They
// live outside the engine package so a workflow's node-type bodies never
// pull LLM or HTTP client dependencies into the core engine's import
// graph — the engine only ever sees the NodeExecutor interface.
package executors

import (
	"context"
	"fmt"

	"github.com/flowthread/workflow/engine"
	"github.com/flowthread/workflow/engine/model"
)

// LLMNodeExecutor runs a "llm_call" node: it builds a prompt from the
// node's Properties and the current Scope, sends it to a ChatModel, and
// merges the response back into the node's output.
//
// Expected NodeDescriptor.Properties:
//   - "prompt" (string, required): template text sent as the user
//     message. Use CEL-free {{state.data.KEY}} placeholders resolved by
//     renderPrompt, not full expression evaluation — node bodies keep
//     their own templating so the engine's Expression Evaluator stays
//     reserved for routing guards.
//   - "system" (string, optional): system message prepended to the chat.
//
// A "model" property is not read: cost is recorded under the modelID
// given to NewLLMNodeExecutor, since the ChatModel is bound to one model.
type LLMNodeExecutor struct {
	chat    model.ChatModel
	cost    *CostTracker
	modelID string
}

// NewLLMNodeExecutor wraps chat as a NodeExecutor. cost may be nil to
// skip cost tracking.
func NewLLMNodeExecutor(chat model.ChatModel, modelID string, cost *CostTracker) *LLMNodeExecutor {
	return &LLMNodeExecutor{chat: chat, cost: cost, modelID: modelID}
}

// CanExecute reports whether the node carries a usable prompt.
func (e *LLMNodeExecutor) CanExecute(_ context.Context, node engine.NodeDescriptor, _ engine.Scope) bool {
	_, ok := node.Properties["prompt"].(string)
	return ok
}

// Execute sends the rendered prompt to the wrapped ChatModel.
func (e *LLMNodeExecutor) Execute(ctx context.Context, node engine.NodeDescriptor, scope engine.Scope) engine.NodeResult {
	prompt, ok := node.Properties["prompt"].(string)
	if !ok {
		return engine.NodeResult{Success: false, Err: fmt.Errorf("llm node %s: missing prompt property", node.ID)}
	}

	messages := make([]model.Message, 0, 2)
	if sys, ok := node.Properties["system"].(string); ok && sys != "" {
		messages = append(messages, model.Message{Role: model.RoleSystem, Content: sys})
	}
	messages = append(messages, model.Message{Role: model.RoleUser, Content: renderPrompt(prompt, scope)})

	out, err := e.chat.Chat(ctx, messages, nil)
	if err != nil {
		return engine.NodeResult{Success: false, Err: fmt.Errorf("llm node %s: %w", node.ID, err)}
	}

	if e.cost != nil {
		// Token counts are not surfaced by the ChatModel interface;
		// approximate from content length until providers expose usage.
		inputTokens := approxTokenCount(messages)
		outputTokens := approxTokenCountText(out.Text)
		_ = e.cost.RecordLLMCall(e.modelID, inputTokens, outputTokens, node.ID)
	}

	return engine.NodeResult{
		Success: true,
		Output: map[string]any{
			"text":       out.Text,
			"tool_calls": toolCallsToAny(out.ToolCalls),
		},
	}
}

func toolCallsToAny(calls []model.ToolCall) []map[string]any {
	out := make([]map[string]any, 0, len(calls))
	for _, c := range calls {
		out = append(out, map[string]any{"name": c.Name, "input": c.Input})
	}
	return out
}

func approxTokenCount(messages []model.Message) int {
	total := 0
	for _, m := range messages {
		total += approxTokenCountText(m.Content)
	}
	return total
}

// approxTokenCountText estimates token count at ~4 characters per token,
// a common rough heuristic when a provider doesn't return exact usage.
func approxTokenCountText(s string) int {
	return (len(s) + 3) / 4
}
