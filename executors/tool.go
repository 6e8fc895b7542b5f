package executors

import (
	"context"
	"fmt"

	"github.com/flowthread/workflow/engine"
	"github.com/flowthread/workflow/engine/tool"
)

// ToolNodeExecutor runs a "tool_call" node: it resolves a named Tool
// from a static registry and invokes it with the node's literal "input"
// property plus every key of scope.Data; where both hold a key, the
// state value wins.
//
// Expected NodeDescriptor.Properties:
//   - "tool" (string, required): the Tool.Name() to invoke.
//   - "input" (map[string]any, optional): literal parameters passed to
//     the tool, overridden by same-named keys already present in the
//     current state data.
type ToolNodeExecutor struct {
	tools map[string]tool.Tool
}

// NewToolNodeExecutor builds a ToolNodeExecutor over the given tools,
// keyed by their Name().
func NewToolNodeExecutor(tools ...tool.Tool) *ToolNodeExecutor {
	reg := make(map[string]tool.Tool, len(tools))
	for _, t := range tools {
		reg[t.Name()] = t
	}
	return &ToolNodeExecutor{tools: reg}
}

// CanExecute reports whether the named tool is registered.
func (e *ToolNodeExecutor) CanExecute(_ context.Context, node engine.NodeDescriptor, _ engine.Scope) bool {
	name, ok := node.Properties["tool"].(string)
	if !ok {
		return false
	}
	_, ok = e.tools[name]
	return ok
}

// Execute invokes the resolved tool.
func (e *ToolNodeExecutor) Execute(ctx context.Context, node engine.NodeDescriptor, scope engine.Scope) engine.NodeResult {
	name, ok := node.Properties["tool"].(string)
	if !ok {
		return engine.NodeResult{Success: false, Err: fmt.Errorf("tool node %s: missing tool property", node.ID)}
	}
	t, ok := e.tools[name]
	if !ok {
		return engine.NodeResult{Success: false, Err: fmt.Errorf("tool node %s: unregistered tool %q", node.ID, name)}
	}

	input := map[string]any{}
	if literal, ok := node.Properties["input"].(map[string]any); ok {
		for k, v := range literal {
			input[k] = v
		}
	}
	for k, v := range scope.Data {
		input[k] = v
	}

	out, err := t.Call(ctx, input)
	if err != nil {
		return engine.NodeResult{Success: false, Err: fmt.Errorf("tool node %s: %w", node.ID, err)}
	}
	return engine.NodeResult{Success: true, Output: out}
}
