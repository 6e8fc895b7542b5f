package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Orchestrator is the Session Orchestrator: the admission layer
// in front of thread creation, forking, lifecycle transitions, messaging
// and shared resources. Every mutating call here updates
// Session.LastActivityAt and is serialised per-session by SessionStore.
type Orchestrator struct {
	sessions  *SessionStore
	threads   *ThreadStore
	lifecycle *LifecycleService
	forkSvc   *ForkService
}

// NewOrchestrator wires a Orchestrator over the given stores.
func NewOrchestrator(sessions *SessionStore, threads *ThreadStore, lifecycle *LifecycleService, forkSvc *ForkService) *Orchestrator {
	return &Orchestrator{sessions: sessions, threads: threads, lifecycle: lifecycle, forkSvc: forkSvc}
}

// CreateSession registers a new active session with cfg, returning its id.
func (o *Orchestrator) CreateSession(ownerID string, cfg SessionConfig) string {
	id := uuid.NewString()
	o.sessions.Put(NewSession(id, ownerID, cfg))
	return id
}

// CreateThread allocates a new pending Thread under sessionID, subject to
// admission: the session must be active and its thread count below
// config.MaxThreads. On success the thread is registered on the session
// and LastActivityAt is bumped; on QuotaExceeded/terminated, nothing
// changes.
func (o *Orchestrator) CreateThread(sessionID, workflowID string, priority int) (string, error) {
	var threadID string
	err := o.sessions.withLock(sessionID, func(s *Session) error {
		if s.Status != SessionActive {
			return ErrSessionTerminated
		}
		if len(s.ThreadIDs) >= s.Config.MaxThreads {
			return ErrQuotaExceeded
		}

		threadID = uuid.NewString()
		o.threads.Put(&Thread{
			ID:         threadID,
			SessionID:  sessionID,
			WorkflowID: workflowID,
			Priority:   priority,
			Status:     ThreadPending,
		})
		s.ThreadIDs[threadID] = struct{}{}
		s.LastActivityAt = time.Now()
		return nil
	})
	if err != nil {
		return "", err
	}
	return threadID, nil
}

// Fork builds a child thread seeded from a parent thread's state via the
// Thread Fork Service, then registers it on the session exactly like
// CreateThread. The returned ForkContext's VariableSnapshot is the child's
// initial state: the caller must pass it as the initialData argument to
// Engine.Execute when it starts the child thread running.
func (o *Orchestrator) Fork(sessionID, parentThreadID, forkPointNodeID string, opts ForkOptions) (*ForkContext, string, error) {
	var fctx *ForkContext
	var childID string
	err := o.sessions.withLock(sessionID, func(s *Session) error {
		if s.Status != SessionActive {
			return ErrSessionTerminated
		}
		if len(s.ThreadIDs) >= s.Config.MaxThreads {
			return ErrQuotaExceeded
		}
		if _, ok := s.ThreadIDs[parentThreadID]; !ok {
			return ErrThreadNotInSession
		}

		parent, ok := o.threads.Get(parentThreadID)
		if !ok {
			return ErrThreadNotFound
		}

		ctx, err := o.forkSvc.Build(parent, forkPointNodeID, opts)
		if err != nil {
			return err
		}

		childID = uuid.NewString()
		ctx.ChildThreadID = childID
		o.threads.Put(&Thread{
			ID:         childID,
			SessionID:  sessionID,
			WorkflowID: parent.WorkflowID,
			Priority:   parent.Priority,
			Status:     ThreadPending,
		})
		fctx = ctx
		s.ThreadIDs[childID] = struct{}{}
		s.LastActivityAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return fctx, childID, nil
}

// ManageThreadLifecycle validates threadID belongs to sessionID and
// forwards action to the Thread Lifecycle Service.
func (o *Orchestrator) ManageThreadLifecycle(sessionID, threadID string, action func(*LifecycleService) error) error {
	return o.sessions.withLock(sessionID, func(s *Session) error {
		if _, ok := s.ThreadIDs[threadID]; !ok {
			return ErrThreadNotInSession
		}
		if err := action(o.lifecycle); err != nil {
			return err
		}
		s.LastActivityAt = time.Now()
		return nil
	})
}

// SendMessage appends body to toThreadID's inbox, tagged as coming from
// fromThreadID. Fails if the session is over its message quota.
func (o *Orchestrator) SendMessage(sessionID, fromThreadID, toThreadID string, body any) (string, error) {
	var msgID string
	err := o.sessions.withLock(sessionID, func(s *Session) error {
		if s.Status != SessionActive {
			return ErrSessionTerminated
		}
		if s.MessageCount >= s.Config.MaxMessages {
			return ErrQuotaExceeded
		}
		msgID = uuid.NewString()
		s.Inbox[toThreadID] = append(s.Inbox[toThreadID], Message{
			ID: msgID, FromThread: fromThreadID, Body: body, SentAt: time.Now(),
		})
		s.MessageCount++
		s.LastActivityAt = time.Now()
		return nil
	})
	if err != nil {
		return "", err
	}
	return msgID, nil
}

// BroadcastMessage delivers body to every thread in the session except
// fromThreadID, returning the list of message ids.
func (o *Orchestrator) BroadcastMessage(sessionID, fromThreadID string, body any) ([]string, error) {
	var ids []string
	err := o.sessions.withLock(sessionID, func(s *Session) error {
		if s.Status != SessionActive {
			return ErrSessionTerminated
		}
		for threadID := range s.ThreadIDs {
			if threadID == fromThreadID {
				continue
			}
			if s.MessageCount >= s.Config.MaxMessages {
				return ErrQuotaExceeded
			}
			id := uuid.NewString()
			s.Inbox[threadID] = append(s.Inbox[threadID], Message{
				ID: id, FromThread: fromThreadID, Body: body, SentAt: time.Now(),
			})
			s.MessageCount++
			ids = append(ids, id)
		}
		s.LastActivityAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DrainInbox returns and clears threadID's pending messages — inboxes
// drain only on explicit read.
func (o *Orchestrator) DrainInbox(sessionID, threadID string) ([]Message, error) {
	var msgs []Message
	err := o.sessions.withLock(sessionID, func(s *Session) error {
		if s.Status == SessionTerminated {
			return ErrSessionTerminated
		}
		msgs = s.Inbox[threadID]
		delete(s.Inbox, threadID)
		s.LastActivityAt = time.Now()
		return nil
	})
	return msgs, err
}

// SetSharedResource sets key on the session's shared-resource map. Keys
// are unique: setting an existing key returns ErrResourceExists unless
// overwrite is true.
func (o *Orchestrator) SetSharedResource(sessionID, key string, value any, overwrite bool) error {
	return o.sessions.withLock(sessionID, func(s *Session) error {
		if s.Status == SessionTerminated {
			return ErrSessionTerminated
		}
		if _, exists := s.SharedResources[key]; exists && !overwrite {
			return ErrResourceExists
		}
		s.SharedResources[key] = value
		s.LastActivityAt = time.Now()
		return nil
	})
}

// GetSharedResource reads key from the session's shared-resource map.
func (o *Orchestrator) GetSharedResource(sessionID, key string) (any, bool, error) {
	var val any
	var ok bool
	err := o.sessions.withLock(sessionID, func(s *Session) error {
		val, ok = s.SharedResources[key]
		return nil
	})
	return val, ok, err
}

// UpdateParallelStrategy sets the session's advisory batching hint. The
// value is stored on the session; Scheduler does not read it.
func (o *Orchestrator) UpdateParallelStrategy(sessionID string, strategy ParallelStrategy) error {
	return o.sessions.withLock(sessionID, func(s *Session) error {
		if s.Status == SessionTerminated {
			return ErrSessionTerminated
		}
		s.ParallelStrategy = strategy
		s.LastActivityAt = time.Now()
		return nil
	})
}

// Suspend and Terminate move a session out of the active state. Once
// terminated, no state-mutating operation on the session succeeds.
func (o *Orchestrator) Suspend(sessionID string) error {
	return o.sessions.withLock(sessionID, func(s *Session) error {
		if s.Status == SessionTerminated {
			return fmt.Errorf("%w: session already terminated", ErrSessionTerminated)
		}
		s.Status = SessionSuspended
		s.LastActivityAt = time.Now()
		return nil
	})
}

func (o *Orchestrator) Terminate(sessionID string) error {
	return o.sessions.withLock(sessionID, func(s *Session) error {
		s.Status = SessionTerminated
		s.LastActivityAt = time.Now()
		return nil
	})
}
