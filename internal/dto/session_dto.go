package dto

import (
	"time"

	"github.com/noah-isme/attendance-api/internal/models"
)

// SessionOpenRequest describes the payload for opening an attendance session.
// When the scheduled window is omitted it is resolved from the schedule source
// for the session's weekday.
type SessionOpenRequest struct {
	TeacherID      uint    `json:"teacher_id" validate:"required,gt=0"`
	SectionID      uint    `json:"section_id" validate:"required,gt=0"`
	SubjectID      *uint   `json:"subject_id" validate:"omitempty,gt=0"`
	Date           string  `json:"date" validate:"required,datetime=2006-01-02"`
	ScheduledStart *string `json:"scheduled_start" validate:"omitempty,datetime=15:04"`
	ScheduledEnd   *string `json:"scheduled_end" validate:"omitempty,datetime=15:04"`
}

// SessionEditRequest carries the editable fields for a session. Editing never
// mutates the existing row; it produces a new version.
type SessionEditRequest struct {
	ScheduledStart *string `json:"scheduled_start" validate:"omitempty,datetime=15:04"`
	ScheduledEnd   *string `json:"scheduled_end" validate:"omitempty,datetime=15:04"`
	SubjectID      *uint   `json:"subject_id" validate:"omitempty,gt=0"`
	Reason         string  `json:"reason" validate:"omitempty,min=3,max=512"`
}

// SessionCancelRequest carries the cancellation reason.
type SessionCancelRequest struct {
	Reason string `json:"reason" validate:"omitempty,min=3,max=512"`
}

// SessionResponse is returned to API clients when viewing sessions.
type SessionResponse struct {
	ID                uint                `json:"id"`
	TeacherID         uint                `json:"teacher_id"`
	SectionID         uint                `json:"section_id"`
	SubjectID         *uint               `json:"subject_id"`
	Date              string              `json:"date"`
	State             models.SessionState `json:"state"`
	ScheduledStart    time.Time           `json:"scheduled_start"`
	ScheduledEnd      time.Time           `json:"scheduled_end"`
	ActualStart       *time.Time          `json:"actual_start"`
	ActualEnd         *time.Time          `json:"actual_end"`
	Version           int                 `json:"version"`
	OriginalSessionID *uint               `json:"original_session_id"`
	IsCurrentVersion  bool                `json:"is_current_version"`
	CreatedAt         time.Time           `json:"created_at"`
}

// NewSessionResponse converts a Session model into a DTO.
func NewSessionResponse(model models.Session) SessionResponse {
	return SessionResponse{
		ID:                model.ID,
		TeacherID:         model.TeacherID,
		SectionID:         model.SectionID,
		SubjectID:         model.SubjectID,
		Date:              model.Date.Format("2006-01-02"),
		State:             model.State,
		ScheduledStart:    model.ScheduledStart,
		ScheduledEnd:      model.ScheduledEnd,
		ActualStart:       model.ActualStart,
		ActualEnd:         model.ActualEnd,
		Version:           model.Version,
		OriginalSessionID: model.OriginalSessionID,
		IsCurrentVersion:  model.IsCurrentVersion,
		CreatedAt:         model.CreatedAt,
	}
}

// NewSessionResponseSlice maps a slice of Session models into DTOs.
func NewSessionResponseSlice(sessions []models.Session) []SessionResponse {
	responses := make([]SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, NewSessionResponse(session))
	}
	return responses
}
