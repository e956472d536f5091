package models

import "time"

// AttendanceRecord stores one student's outcome within exactly one session.
// Corrections never overwrite in place; they append a new version row and
// retire the previous one, so the full history survives for audit.
type AttendanceRecord struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	SessionID        uint             `gorm:"not null;index" json:"session_id"`
	StudentID        uint             `gorm:"not null;index" json:"student_id"`
	StatusID         uint             `gorm:"not null" json:"status_id"`
	MarkedAt         time.Time        `gorm:"not null" json:"marked_at"`
	MarkedBy         uint             `gorm:"not null" json:"marked_by"`
	Remarks          string           `gorm:"size:512" json:"remarks"`
	MarkingMethod    MarkingMethod    `gorm:"size:16;not null;default:manual" json:"marking_method"`
	Version          int              `gorm:"not null;default:1" json:"version"`
	OriginalRecordID *uint            `gorm:"index" json:"original_record_id"`
	IsCurrentVersion bool             `gorm:"not null;default:true" json:"is_current_version"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	Status           AttendanceStatus `gorm:"constraint:OnUpdate:CASCADE" json:"status"`
	Session          Session          `gorm:"constraint:OnUpdate:CASCADE" json:"-"`
}

// ChainRootID returns the id of the version-1 ancestor of the record's chain.
func (r AttendanceRecord) ChainRootID() uint {
	if r.OriginalRecordID != nil {
		return *r.OriginalRecordID
	}
	return r.ID
}
