package queue

import "errors"

// Queue operation failures. All are recoverable by the caller; none is
// treated as fatal. ErrPersistenceFailed is the only one preceded by an
// internal retry.
var (
	ErrAlreadyQueued           = errors.New("appointment already has a live queue entry")
	ErrInvalidAppointmentState = errors.New("appointment is not in a valid state for this action")
	ErrQueueEmpty              = errors.New("no patients are waiting")
	ErrConsultationInProgress  = errors.New("a consultation is already in progress")
	ErrNotCurrentPatient       = errors.New("appointment is not the current in-progress patient")
	ErrNotQueued               = errors.New("appointment is not in the queue")
	ErrPersistenceFailed       = errors.New("failed to persist queue state")
	ErrBusy                    = errors.New("queue is busy, retry the action")
)
