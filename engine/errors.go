// Package engine provides the thread/workflow execution engine: the
// subsystem that advances a thread through its workflow graph, maintains
// per-thread state, routes between nodes, checkpoints progress, and
// supports pause/resume/cancel.
package engine

import "errors"

// ErrorType classifies an engine error into a small taxonomy: input,
// resource, execution, timeout, cancellation, or fatal. It is carried on
// EngineError so callers can branch on category without string matching.
type ErrorType string

const (
	// ErrorTypeInput covers malformed requests: bad expressions, unknown
	// nodes, inactive/empty workflows, missing threads or checkpoints.
	ErrorTypeInput ErrorType = "input"
	// ErrorTypeResource covers admission failures: quota, terminated session.
	ErrorTypeResource ErrorType = "resource"
	// ErrorTypeExecution covers node executor failures (possibly retried).
	ErrorTypeExecution ErrorType = "execution"
	// ErrorTypeTimeout covers node and workflow timeouts.
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeCancellation covers a cooperative cancel; not a failure.
	ErrorTypeCancellation ErrorType = "cancellation"
	// ErrorTypeFatal covers internal invariant violations (missing state,
	// corrupt checkpoint).
	ErrorTypeFatal ErrorType = "fatal"
)

// Sentinel errors. Each is comparable with errors.Is and corresponds to an
// ErrorType code above. Input/resource/fatal errors are never retried.
var (
	ErrInvalidExpression  = errors.New("engine: invalid expression")
	ErrUnknownNode        = errors.New("engine: unknown node")
	ErrWorkflowInactive   = errors.New("engine: workflow is not active")
	ErrWorkflowEmpty      = errors.New("engine: workflow has no nodes")
	ErrThreadNotFound     = errors.New("engine: thread not found")
	ErrCheckpointNotFound = errors.New("engine: checkpoint not found")
	ErrInvalidTransition  = errors.New("engine: invalid thread state transition")

	ErrQuotaExceeded     = errors.New("engine: quota exceeded")
	ErrSessionTerminated = errors.New("engine: session terminated")

	ErrNodeExecutionFailed = errors.New("engine: node execution failed")
	ErrNodeTimeout         = errors.New("engine: node execution timed out")
	ErrWorkflowTimeout     = errors.New("engine: workflow execution timed out")
	ErrCancelled           = errors.New("engine: execution cancelled")

	ErrStateMissing     = errors.New("engine: thread state missing")
	ErrCheckpointCorrupt = errors.New("engine: checkpoint data is corrupt")
)

// EngineError is the structured error that Execute and Resume return when
// a precondition or checkpoint lookup fails; failures during a run are
// reported in WorkflowExecutionResult.ErrorDetails as
// ExecutionErrorDetails instead. It wraps a sentinel so callers can
// use errors.Is/errors.As against both the concrete EngineError and the
// underlying taxonomy error.
type EngineError struct {
	// NodeID identifies the node active when the error occurred, if any.
	NodeID string
	// Type classifies the error (see ErrorType).
	Type ErrorType
	// Message is a human-readable description.
	Message string
	// Cause is the underlying error, usually one of the sentinels above or
	// an error returned by a NodeExecutor.
	Cause error
}

func (e *EngineError) Error() string {
	if e.NodeID != "" {
		return "engine: node " + e.NodeID + ": " + e.Message
	}
	return "engine: " + e.Message
}

// Unwrap supports errors.Is/errors.As against Cause.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

func newEngineError(nodeID string, typ ErrorType, cause error) *EngineError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &EngineError{NodeID: nodeID, Type: typ, Message: msg, Cause: cause}
}
