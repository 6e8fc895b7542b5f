package engine

import (
	"time"

	"github.com/flowthread/workflow/engine/emit"
)

// ExecuteOptions configures one Execute call. The
// zero value is not valid on its own — use DefaultExecuteOptions and apply
// ExecuteOption values on top, the way New(...) composes engine-wide
// Option values.
type ExecuteOptions struct {
	EnableCheckpoints    bool
	CheckpointInterval   int
	MaxSteps             int
	Timeout              time.Duration
	NodeTimeout          time.Duration
	MaxNodeRetries       int
	NodeRetryDelay       time.Duration
	EnableErrorRecovery  bool
	RecordRoutingHistory bool
}

// DefaultExecuteOptions returns the engine's default per-call options.
func DefaultExecuteOptions() ExecuteOptions {
	return ExecuteOptions{
		EnableCheckpoints:    true,
		CheckpointInterval:   1,
		MaxSteps:             1000,
		Timeout:              300 * time.Second,
		NodeTimeout:          30 * time.Second,
		MaxNodeRetries:       0,
		NodeRetryDelay:       time.Second,
		EnableErrorRecovery:  false,
		RecordRoutingHistory: false,
	}
}

// ExecuteOption is a functional option for one Execute call, mirroring the
// engine-wide Option pattern used for constructing an Engine itself.
//
// Example:
//
//	result, err := eng.Execute(ctx, workflow, threadID, initialData,
//	    engine.WithMaxSteps(50),
//	    engine.WithCheckpointInterval(5),
//	)
type ExecuteOption func(*ExecuteOptions)

// WithEnableCheckpoints toggles periodic checkpointing. Default: true.
func WithEnableCheckpoints(enabled bool) ExecuteOption {
	return func(o *ExecuteOptions) { o.EnableCheckpoints = enabled }
}

// WithCheckpointInterval sets how many steps elapse between checkpoints.
// Default: 1 (checkpoint before every node except the first one of each
// Execute or Resume call).
func WithCheckpointInterval(steps int) ExecuteOption {
	return func(o *ExecuteOptions) { o.CheckpointInterval = steps }
}

// WithMaxSteps bounds the number of steps a single Execute call will take
// before terminating with StatusStepLimit. Default: 1000.
func WithMaxSteps(n int) ExecuteOption {
	return func(o *ExecuteOptions) { o.MaxSteps = n }
}

// WithTimeout bounds total wall-clock time for the run. Default: 300s.
func WithTimeout(d time.Duration) ExecuteOption {
	return func(o *ExecuteOptions) { o.Timeout = d }
}

// WithNodeTimeout bounds a single NodeExecutor.Execute call, unless the
// node's own Policy overrides it. Default: 30s.
func WithNodeTimeout(d time.Duration) ExecuteOption {
	return func(o *ExecuteOptions) { o.NodeTimeout = d }
}

// WithMaxNodeRetries sets the engine-wide retry budget for a failing node,
// unless the node's own Policy overrides it. Default: 0 (no retries; one
// attempt total).
func WithMaxNodeRetries(n int) ExecuteOption {
	return func(o *ExecuteOptions) { o.MaxNodeRetries = n }
}

// WithNodeRetryDelay sets the base backoff between retry attempts.
// Default: 1s.
func WithNodeRetryDelay(d time.Duration) ExecuteOption {
	return func(o *ExecuteOptions) { o.NodeRetryDelay = d }
}

// WithErrorRecovery enables routing a failed node through an outgoing
// `error` edge instead of failing the thread outright. Default: false.
func WithErrorRecovery(enabled bool) ExecuteOption {
	return func(o *ExecuteOptions) { o.EnableErrorRecovery = enabled }
}

// WithRoutingHistory makes the Conditional Router fill RouteResult.Decisions
// at each step. The engine does not keep or return those decisions.
// Default: false.
func WithRoutingHistory(enabled bool) ExecuteOption {
	return func(o *ExecuteOptions) { o.RecordRoutingHistory = enabled }
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithMetrics attaches Prometheus instrumentation to the Engine.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithEmitter overrides the engine's event Emitter. Default: a NullEmitter.
func WithEmitter(em emit.Emitter) Option {
	return func(e *Engine) { e.emitter = em }
}
