package service

import "errors"

// Typed errors returned by the attendance services. All are recoverable by the
// caller; constraint races at the store are translated into these instead of
// leaking storage errors.
var (
	// ErrDuplicateActiveSession indicates an active session already exists for
	// the (teacher, section, subject, date) key.
	ErrDuplicateActiveSession = errors.New("an active session already exists for this teacher, section, subject and date")
	// ErrSessionNotFound indicates the session id resolves to nothing.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionNotActive indicates records cannot be marked against the session.
	ErrSessionNotActive = errors.New("session is not active")
	// ErrInvalidTransition indicates the requested lifecycle change is not legal
	// from the session's current state or version.
	ErrInvalidTransition = errors.New("invalid session state transition")
	// ErrDuplicateRecord indicates a current-version record already exists for
	// the (session, student) pair; callers must correct instead of re-marking.
	ErrDuplicateRecord = errors.New("a current attendance record already exists for this student in this session")
	// ErrRecordNotFound indicates no current-version record exists for the id.
	ErrRecordNotFound = errors.New("attendance record not found")
	// ErrEnrollmentMismatch indicates the student is not enrolled in the
	// session's section as of the session date.
	ErrEnrollmentMismatch = errors.New("student is not enrolled in the section on the session date")
	// ErrFutureDateRejected indicates the session date lies in the future
	// relative to server time.
	ErrFutureDateRejected = errors.New("attendance cannot be marked for a future date")
	// ErrStatusUnknown indicates the status id is not part of the catalog.
	ErrStatusUnknown = errors.New("unknown attendance status")
	// ErrReasonRequired indicates the actor must supply a reason for the change.
	ErrReasonRequired = errors.New("a reason is required for this change")
)
