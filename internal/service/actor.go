package service

import "context"

// Roles recognized by the permission check. Authentication itself happens at
// the middleware boundary; services only care about the permission level.
const (
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// Actor identifies who performs a mutation.
type Actor struct {
	ID   uint
	Role string
}

// MayOmitReason reports whether the actor can edit sessions or correct records
// without recording an authorization note.
func (a Actor) MayOmitReason() bool {
	return a.Role == RoleAdmin
}

// AnalyticsInvalidator marks a student's derived analytics stale. Implemented
// by the analytics service; declared separately so the session and record
// services depend only on the invalidation contract.
type AnalyticsInvalidator interface {
	Invalidate(ctx context.Context, studentID uint) error
}
