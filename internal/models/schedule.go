package models

import (
	"fmt"
	"time"
)

// ScheduleSlot describes the planned window for a teacher/section/subject on a
// weekday. Start and end are wall-clock times in "15:04" form; the concrete
// window for a date is derived with WindowOn.
type ScheduleSlot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeacherID uint      `gorm:"not null;index:idx_schedule_key" json:"teacher_id"`
	SectionID uint      `gorm:"not null;index:idx_schedule_key" json:"section_id"`
	SubjectID *uint     `gorm:"index:idx_schedule_key" json:"subject_id"`
	Weekday   int       `gorm:"not null;index:idx_schedule_key" json:"weekday"`
	StartTime string    `gorm:"size:5;not null" json:"start_time"`
	EndTime   string    `gorm:"size:5;not null" json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}

// WindowOn resolves the slot's wall-clock times against a concrete date.
func (s ScheduleSlot) WindowOn(date time.Time) (time.Time, time.Time, error) {
	start, err := combineClock(date, s.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid slot start time: %w", err)
	}

	end, err := combineClock(date, s.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid slot end time: %w", err)
	}

	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("slot end %q not after start %q", s.EndTime, s.StartTime)
	}

	return start, end, nil
}

func combineClock(date time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, date.Location()), nil
}
