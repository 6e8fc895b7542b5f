package session

import (
	"time"

	"github.com/robfig/cron/v3"
)

// CleanupPolicy decides which sessions a sweep should touch and how.
type CleanupPolicy struct {
	// IdleAfter suspends active sessions whose LastActivityAt is older
	// than this, and terminates sessions already suspended that long.
	IdleAfter time.Duration
}

// findSessionsNeedingCleanup scans all sessions and returns those whose
// idle time exceeds policy.IdleAfter, grouped by the action the sweep
// should take.
func findSessionsNeedingCleanup(sessions []*Session, policy CleanupPolicy, now time.Time) (toSuspend, toTerminate []*Session) {
	for _, s := range sessions {
		if now.Sub(s.LastActivityAt) < policy.IdleAfter {
			continue
		}
		switch s.Status {
		case SessionActive:
			toSuspend = append(toSuspend, s)
		case SessionSuspended:
			toTerminate = append(toTerminate, s)
		}
	}
	return toSuspend, toTerminate
}

// CleanupScheduler periodically sweeps the SessionStore for idle sessions
// and suspends/terminates them, running findSessionsNeedingCleanup on a
// cron schedule via robfig/cron.
type CleanupScheduler struct {
	cron         *cron.Cron
	orchestrator *Orchestrator
	sessions     *SessionStore
	policy       CleanupPolicy
}

// NewCleanupScheduler builds a CleanupScheduler; call Start to begin
// running sweeps on spec (standard 5-field cron syntax, e.g. "*/5 * * * *").
func NewCleanupScheduler(orchestrator *Orchestrator, sessions *SessionStore, policy CleanupPolicy) *CleanupScheduler {
	return &CleanupScheduler{
		cron:         cron.New(),
		orchestrator: orchestrator,
		sessions:     sessions,
		policy:       policy,
	}
}

// Start schedules the sweep on spec and begins running it in the
// background. It returns an error if spec fails to parse.
func (c *CleanupScheduler) Start(spec string) error {
	_, err := c.cron.AddFunc(spec, c.sweep)
	if err != nil {
		return err
	}
	c.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight sweep to finish.
func (c *CleanupScheduler) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

func (c *CleanupScheduler) sweep() {
	toSuspend, toTerminate := findSessionsNeedingCleanup(c.sessions.All(), c.policy, time.Now())
	for _, s := range toSuspend {
		_ = c.orchestrator.Suspend(s.ID)
	}
	for _, s := range toTerminate {
		_ = c.orchestrator.Terminate(s.ID)
	}
}
