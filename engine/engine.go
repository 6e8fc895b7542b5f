package engine

import (
	"context"
	"errors"
	"time"

	"github.com/flowthread/workflow/engine/emit"
	"github.com/flowthread/workflow/engine/expr"
)

// Engine is the Workflow Execution Engine: the main loop that
// advances a single thread through its workflow graph, one node at a
// time, consulting the State Manager, History Manager, Checkpoint
// Manager, Conditional Router and Execution Controller registry along
// the way. One Engine can drive many concurrent Execute calls; its
// managers key their data by thread id, each behind a single mutex.
type Engine struct {
	registry    ExecutorRegistry
	state       *StateManager
	history     *HistoryManager
	checkpoints *CheckpointManager
	controllers *ControllerRegistry
	router      *Router
	eval        *expr.Evaluator

	emitter emit.Emitter
	metrics *Metrics
}

// New constructs an Engine. registry resolves NodeDescriptor.Type to the
// NodeExecutor that runs it; node-type bodies themselves live outside this
// package.
func New(registry ExecutorRegistry, opts ...Option) (*Engine, error) {
	ev, err := expr.New()
	if err != nil {
		return nil, err
	}
	adapter := &exprAdapter{ev: ev}

	e := &Engine{
		registry:    registry,
		state:       NewStateManager(),
		history:     NewHistoryManager(),
		checkpoints: NewCheckpointManager(),
		controllers: NewControllerRegistry(),
		eval:        ev,
		emitter:     emit.NewNullEmitter(),
	}
	e.router = NewRouter(adapter, false)
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// exprAdapter lets Router depend on the narrow expressionEvaluator
// interface instead of *expr.Evaluator directly, and translates between
// engine.Scope and expr.Scope.
type exprAdapter struct{ ev *expr.Evaluator }

func (a *exprAdapter) EvaluateBool(exprText string, scope Scope) bool {
	return a.ev.EvaluateBool(exprText, expr.Scope{
		Data:       scope.Data,
		Metadata:   scope.Metadata,
		PrevResult: scope.PrevResult,
	})
}

// emit forwards a node-execution event to the configured Emitter.
func (e *Engine) emit(threadID string, step int, nodeID, msg string, meta map[string]any) {
	e.emitter.Emit(emit.Event{ThreadID: threadID, Step: step, NodeID: nodeID, Msg: msg, Meta: meta})
}

// Controllers exposes the process-wide ExecutionController registry so
// external callers can pause/resume/cancel a running thread by id.
func (e *Engine) Controllers() *ControllerRegistry {
	return e.controllers
}

// History exposes the HistoryManager for callers that want to inspect a
// thread's execution record outside of Execute's return value.
func (e *Engine) History() *HistoryManager {
	return e.history
}

// Checkpoints exposes the CheckpointManager, e.g. to persist the latest
// checkpoint id for out-of-process resume.
func (e *Engine) Checkpoints() *CheckpointManager {
	return e.checkpoints
}

// Execute drives threadID through workflow from scratch, starting at the
// workflow's start node with initialData as the thread's initial state
//. It returns once the thread reaches a terminal status.
func (e *Engine) Execute(ctx context.Context, workflow *Workflow, threadID string, initialData map[string]any, opts ...ExecuteOption) (WorkflowExecutionResult, error) {
	options := DefaultExecuteOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if err := checkWorkflowPreconditions(workflow); err != nil {
		return WorkflowExecutionResult{}, err
	}
	start, _ := workflow.StartNode()

	e.state.Initialize(threadID, workflow.ID, initialData)
	return e.run(ctx, workflow, threadID, start.ID, 0, options)
}

// Resume continues threadID from checkpointID: the checkpoint's
// CurrentNodeID is re-executed, it is not skipped, since checkpoints are
// taken before the node they snapshot.
func (e *Engine) Resume(ctx context.Context, workflow *Workflow, threadID string, checkpointID string, opts ...ExecuteOption) (WorkflowExecutionResult, error) {
	options := DefaultExecuteOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if err := checkWorkflowPreconditions(workflow); err != nil {
		return WorkflowExecutionResult{}, err
	}
	cp, err := e.checkpoints.Restore(checkpointID)
	if err != nil {
		return WorkflowExecutionResult{}, newEngineError("", ErrorTypeInput, err)
	}

	e.state.ClearState(threadID)
	e.state.Initialize(threadID, workflow.ID, cp.Data)
	return e.run(ctx, workflow, threadID, cp.CurrentNodeID, cp.Step, options)
}

// checkWorkflowPreconditions enforces the engine's entry preconditions:
// the workflow must be active and non-empty before any state is touched.
func checkWorkflowPreconditions(workflow *Workflow) error {
	if workflow.Status != WorkflowActive {
		return newEngineError("", ErrorTypeInput, ErrWorkflowInactive)
	}
	if workflow.IsEmpty() {
		return newEngineError("", ErrorTypeInput, ErrWorkflowEmpty)
	}
	return nil
}

func (e *Engine) run(ctx context.Context, workflow *Workflow, threadID, startNodeID string, startStep int, options ExecuteOptions) (WorkflowExecutionResult, error) {
	controller := e.controllers.register(threadID)
	defer e.controllers.deregister(threadID)
	e.metrics.threadStarted()

	router := e.router
	if options.RecordRoutingHistory {
		router = NewRouter(e.router.eval, true)
	}

	startedAt := time.Now()
	deadline := startedAt.Add(options.Timeout)

	currentNodeID := startNodeID
	step := startStep
	stepsSinceCheckpoint := 0
	executedNodes := 0
	checkpointCount := 0
	var prevResult map[string]any
	var nodeFailed bool

	finish := func(status ExecutionStatus, details *ExecutionErrorDetails) (WorkflowExecutionResult, error) {
		controller.complete()
		st, _ := e.state.GetState(threadID)
		e.metrics.threadFinished(status)
		return WorkflowExecutionResult{
			Success:         status == StatusCompleted,
			FinalState:      st,
			ExecutedNodes:   executedNodes,
			ExecutionTime:   time.Since(startedAt),
			CheckpointCount: checkpointCount,
			Status:          status,
			ErrorDetails:    details,
		}, nil
	}

	for currentNodeID != "" {
		if controller.IsCancelled() {
			return finish(StatusCancelled, nil)
		}
		if controller.IsPaused() {
			controller.WaitForResume()
			if controller.IsCancelled() {
				return finish(StatusCancelled, nil)
			}
		}
		if options.Timeout > 0 && time.Now().After(deadline) {
			e.metrics.timedOut("workflow")
			return finish(StatusTimeout, &ExecutionErrorDetails{ErrorType: ErrorTypeTimeout, Message: ErrWorkflowTimeout.Error(), Timestamp: time.Now()})
		}
		if options.MaxSteps > 0 && step >= options.MaxSteps {
			return finish(StatusStepLimit, nil)
		}

		node, ok := workflow.Nodes[currentNodeID]
		if !ok {
			return finish(StatusError, &ExecutionErrorDetails{NodeID: currentNodeID, ErrorType: ErrorTypeInput, Message: ErrUnknownNode.Error(), Timestamp: time.Now()})
		}

		if options.EnableCheckpoints && stepsSinceCheckpoint >= options.CheckpointInterval {
			st, err := e.state.GetState(threadID)
			if err != nil {
				return finish(StatusError, &ExecutionErrorDetails{NodeID: currentNodeID, ErrorType: ErrorTypeFatal, Message: err.Error(), Timestamp: time.Now()})
			}
			e.checkpoints.Create(threadID, workflow.ID, currentNodeID, st.Data, step, nil)
			e.metrics.checkpointCreated()
			checkpointCount++
			stepsSinceCheckpoint = 0
		}

		executor, ok := e.registry.Resolve(node.Type)
		if !ok {
			return finish(StatusError, &ExecutionErrorDetails{NodeID: currentNodeID, ErrorType: ErrorTypeFatal, Message: "no executor registered for node type " + node.Type, Timestamp: time.Now()})
		}

		st, err := e.state.GetState(threadID)
		if err != nil {
			return finish(StatusError, &ExecutionErrorDetails{NodeID: currentNodeID, ErrorType: ErrorTypeFatal, Message: err.Error(), Timestamp: time.Now()})
		}
		scope := Scope{Data: st.Data, Metadata: st.Metadata, PrevResult: prevResult, Cancelled: controller.Done()}

		if !executor.CanExecute(ctx, node, scope) {
			return finish(StatusError, &ExecutionErrorDetails{NodeID: currentNodeID, ErrorType: ErrorTypeFatal, Message: "node not ready", Timestamp: time.Now()})
		}

		timeout, retry := resolvePolicy(node, options.NodeTimeout, defaultRetryPolicy(options.MaxNodeRetries, options.NodeRetryDelay))
		result, execErr := e.executeWithRetry(ctx, node, scope, timeout, retry, threadID, step)
		nodeFailed = execErr != nil || !result.Success
		executedNodes++
		if controller.IsCancelled() {
			return finish(StatusCancelled, nil)
		}

		// Merge output into state unconditionally, before deciding whether
		// the failure is fatal or error-edge-recoverable.
		if result.Output != nil {
			if _, err := e.state.UpdateState(threadID, result.Output); err != nil {
				return finish(StatusError, &ExecutionErrorDetails{NodeID: currentNodeID, ErrorType: ErrorTypeFatal, Message: err.Error(), Timestamp: time.Now()})
			}
		}
		prevResult = result.Output

		if err := e.state.SetCurrentNode(threadID, currentNodeID); err != nil {
			return finish(StatusError, &ExecutionErrorDetails{NodeID: currentNodeID, ErrorType: ErrorTypeFatal, Message: err.Error(), Timestamp: time.Now()})
		}

		if nodeFailed {
			e.metrics.nodeFailed(node.Type)
			errType := ErrorTypeExecution
			errMsg := ErrNodeExecutionFailed.Error()
			if execErr != nil && isEngineTimeout(execErr) {
				errType = ErrorTypeTimeout
				errMsg = ErrNodeTimeout.Error()
			} else if execErr != nil {
				errMsg = execErr.Error()
			}
			if !options.EnableErrorRecovery {
				return finish(StatusError, &ExecutionErrorDetails{NodeID: currentNodeID, ErrorType: errType, Message: errMsg, Timestamp: time.Now()})
			}
		}

		edges := workflow.OutgoingEdges(currentNodeID)
		st, _ = e.state.GetState(threadID)
		route := router.Route(edges, nodeFailed, Scope{Data: st.Data, Metadata: st.Metadata, PrevResult: prevResult})

		if nodeFailed && route.Edge == nil {
			return finish(StatusError, &ExecutionErrorDetails{NodeID: currentNodeID, ErrorType: ErrorTypeExecution, Message: ErrNodeExecutionFailed.Error(), Timestamp: time.Now()})
		}

		if route.Edge == nil {
			return finish(StatusCompleted, nil)
		}

		currentNodeID = route.Edge.To
		step++
		stepsSinceCheckpoint++
	}

	return finish(StatusCompleted, nil)
}

// isEngineTimeout reports whether err originates from a per-node context
// deadline, as wrapped by executeWithRetry.
func isEngineTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
