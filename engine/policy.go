package engine

import "time"

// NodePolicy lets a NodeDescriptor override the engine's default
// per-node timeout and retry behaviour.
type NodePolicy struct {
	// Timeout overrides the engine-wide nodeTimeout for this node. Zero
	// means "use the engine default".
	Timeout time.Duration
	// Retry overrides the engine-wide retry policy for this node. Nil
	// means "use the engine default".
	Retry *RetryPolicy
}

// RetryPolicy governs how a failed node execution is retried.
// MaxAttempts=1 means the node runs once with no retries, matching the
// engine-wide default of maxNodeRetries=0.
type RetryPolicy struct {
	// MaxAttempts is the total number of Execute calls for this node,
	// including the first. Must be >= 1.
	MaxAttempts int
	// BaseDelay is the backoff before the second attempt.
	BaseDelay time.Duration
	// MaxDelay caps the backoff regardless of attempt number.
	MaxDelay time.Duration
	// Exponential selects exponential backoff (BaseDelay * 2^(n-1))
	// instead of the default linear backoff (BaseDelay * n), where n is
	// the retry number (1 before the second attempt).
	Exponential bool
}

// defaultRetryPolicy builds the RetryPolicy implied by the engine's
// maxNodeRetries/nodeRetryDelay options: linear backoff, no
// exponential opt-in.
func defaultRetryPolicy(maxNodeRetries int, nodeRetryDelay time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxNodeRetries + 1,
		BaseDelay:   nodeRetryDelay,
		MaxDelay:    0,
	}
}

// computeBackoff returns the delay before attempt (1-indexed: attempt=2 is
// the delay before the second try). Linear by default; exponential when
// the policy opts in. A MaxDelay of zero means uncapped.
func computeBackoff(p RetryPolicy, attempt int) time.Duration {
	if attempt <= 1 || p.BaseDelay <= 0 {
		return 0
	}
	var d time.Duration
	if p.Exponential {
		d = p.BaseDelay
		for i := 1; i < attempt-1; i++ {
			d *= 2
			if p.MaxDelay > 0 && d >= p.MaxDelay {
				d = p.MaxDelay
				break
			}
		}
	} else {
		d = p.BaseDelay * time.Duration(attempt-1)
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// resolvePolicy merges a node's optional policy override over the
// engine-wide defaults.
func resolvePolicy(node NodeDescriptor, defaultTimeout time.Duration, defaultRetry RetryPolicy) (time.Duration, RetryPolicy) {
	timeout := defaultTimeout
	retry := defaultRetry
	if node.Policy != nil {
		if node.Policy.Timeout > 0 {
			timeout = node.Policy.Timeout
		}
		if node.Policy.Retry != nil {
			retry = *node.Policy.Retry
		}
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return timeout, retry
}
