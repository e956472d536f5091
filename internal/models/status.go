package models

import "time"

// StatusCode identifies an attendance outcome. The set is closed; raw strings
// from the input boundary must be converted and validated before use.
type StatusCode string

const (
	StatusPresent StatusCode = "P"
	StatusAbsent  StatusCode = "A"
	StatusLate    StatusCode = "L"
	StatusExcused StatusCode = "E"
)

// Valid returns true when the code is a supported value.
func (c StatusCode) Valid() bool {
	switch c {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	default:
		return false
	}
}

// CountsAsAbsent reports whether the outcome counts toward absence totals.
func (c StatusCode) CountsAsAbsent() bool {
	return c == StatusAbsent
}

// AttendanceStatus is an immutable catalog entry for an attendance outcome.
// Rows are seeded at migration time and never mutated afterwards; everything
// else references them by id.
type AttendanceStatus struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Code        StatusCode `gorm:"size:8;uniqueIndex;not null" json:"code"`
	Name        string     `gorm:"size:64;not null" json:"name"`
	Description string     `gorm:"size:255" json:"description"`
	SortOrder   int        `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SessionState captures the lifecycle state of an attendance session.
type SessionState string

const (
	SessionActive    SessionState = "active"
	SessionCompleted SessionState = "completed"
	SessionCancelled SessionState = "cancelled"
)

// Valid returns true when the state is a supported value.
func (s SessionState) Valid() bool {
	switch s {
	case SessionActive, SessionCompleted, SessionCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether the state admits no further transitions for that
// session version. Edits produce a new version instead of mutating a terminal row.
func (s SessionState) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// MarkingMethod records how an attendance record came to exist.
type MarkingMethod string

const (
	MarkingManual MarkingMethod = "manual"
	MarkingAuto   MarkingMethod = "auto"
)
