package session

import "errors"

var (
	ErrSessionNotFound    = errors.New("session: not found")
	ErrSessionTerminated  = errors.New("session: terminated")
	ErrQuotaExceeded      = errors.New("session: quota exceeded")
	ErrThreadNotFound     = errors.New("session: thread not found")
	ErrThreadNotInSession = errors.New("session: thread does not belong to session")
	ErrResourceExists     = errors.New("session: shared resource key already exists")
	ErrInvalidTransition  = errors.New("session: invalid thread state transition")
)
