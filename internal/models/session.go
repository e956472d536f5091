package models

import "time"

// Session represents one attendance-taking occasion for a teacher, section and
// optional subject on a given date. Sessions form append-only version chains:
// edits insert a new row pointing back at the version-1 ancestor and flip
// IsCurrentVersion on the superseded row.
type Session struct {
	ID                uint         `gorm:"primaryKey" json:"id"`
	TeacherID         uint         `gorm:"not null;index" json:"teacher_id"`
	SectionID         uint         `gorm:"not null;index" json:"section_id"`
	SubjectID         *uint        `gorm:"index" json:"subject_id"`
	Date              time.Time    `gorm:"type:date;not null" json:"date"`
	State             SessionState `gorm:"size:16;not null;default:active" json:"state"`
	ScheduledStart    time.Time    `gorm:"not null" json:"scheduled_start"`
	ScheduledEnd      time.Time    `gorm:"not null" json:"scheduled_end"`
	ActualStart       *time.Time   `json:"actual_start"`
	ActualEnd         *time.Time   `json:"actual_end"`
	Version           int          `gorm:"not null;default:1" json:"version"`
	OriginalSessionID *uint        `gorm:"index" json:"original_session_id"`
	IsCurrentVersion  bool         `gorm:"not null;default:true" json:"is_current_version"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// IsActive reports whether records may still be marked against the session.
func (s Session) IsActive() bool {
	return s.State == SessionActive
}

// ChainRootID returns the id of the version-1 ancestor of the session's chain.
func (s Session) ChainRootID() uint {
	if s.OriginalSessionID != nil {
		return *s.OriginalSessionID
	}
	return s.ID
}

// Expired reports whether the scheduled window has elapsed without the session
// being closed.
func (s Session) Expired(now time.Time) bool {
	return s.State == SessionActive && s.ScheduledEnd.Before(now)
}
