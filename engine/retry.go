package engine

import (
	"context"
	"time"
)

// executeWithRetry runs node through the engine's NodeExecutor, applying
// the per-node timeout and retry policy, and recording one History entry
// per attempt. Node-level retries are local: same node id, same
// scope, no re-routing between attempts.
func (e *Engine) executeWithRetry(ctx context.Context, node NodeDescriptor, scope Scope, timeout time.Duration, retry RetryPolicy, threadID string, step int) (NodeResult, error) {
	executor, _ := e.registry.Resolve(node.Type)

	var last NodeResult
	var lastErr error

	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			e.metrics.retryAttempted(node.Type)
			if d := computeBackoff(retry, attempt); d > 0 {
				timer := time.NewTimer(d)
				select {
				case <-ctx.Done():
					timer.Stop()
					return last, ctx.Err()
				case <-timer.C:
				}
			}
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		}

		started := time.Now()
		result := executor.Execute(attemptCtx, node, scope)
		duration := time.Since(started)
		if cancel != nil {
			cancel()
		}

		var attemptErr error
		if attemptCtx.Err() == context.DeadlineExceeded {
			attemptErr = context.DeadlineExceeded
			result.Success = false
			e.metrics.timedOut("node")
		} else if result.Err != nil {
			attemptErr = result.Err
			result.Success = false
		} else if !result.Success {
			attemptErr = ErrNodeExecutionFailed
		}

		status := NodeSuccess
		if attemptErr != nil {
			status = NodeFailure
		}
		e.history.Record(NodeExecutionRecord{
			ThreadID:  threadID,
			NodeID:    node.ID,
			Timestamp: started,
			Input:     scope.Data,
			Output:    result.Output,
			Status:    status,
			Metadata:  result.Metadata,
			Duration:  duration,
		})
		e.metrics.stepExecuted(node.Type, duration)
		e.emit(threadID, step, node.ID, string(status), result.Metadata)

		last = result
		lastErr = attemptErr
		if attemptErr == nil {
			return last, nil
		}
	}

	return last, lastErr
}
