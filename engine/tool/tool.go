// Package tool defines the contract a workflow's tool-calling nodes
// execute against.
package tool

import "context"

// Tool is an executable action an LLM can invoke from a tool_call node.
type Tool interface {
	// Name is the tool's unique identifier, matched against a node's
	// "tool" property and a model.ToolSpec.Name.
	Name() string
	// Call runs the tool against input, returning a structured result.
	Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)
}
