package models

import "time"

// Enrollment binds a student to a section for a date range. An open EndDate
// means the enrollment is still in effect.
type Enrollment struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	StudentID uint       `gorm:"not null;index:idx_enrollment_student_section" json:"student_id"`
	SectionID uint       `gorm:"not null;index:idx_enrollment_student_section" json:"section_id"`
	StartDate time.Time  `gorm:"type:date;not null" json:"start_date"`
	EndDate   *time.Time `gorm:"type:date" json:"end_date"`
	CreatedAt time.Time  `json:"created_at"`
	Student   Student    `gorm:"constraint:OnUpdate:CASCADE" json:"student"`
}

// ActiveOn reports whether the enrollment covers the given date.
func (e Enrollment) ActiveOn(date time.Time) bool {
	if date.Before(e.StartDate) {
		return false
	}
	if e.EndDate != nil && date.After(*e.EndDate) {
		return false
	}
	return true
}
