package dto

import (
	"time"

	"github.com/noah-isme/attendance-api/internal/models"
)

// RecordMarkRequest describes the payload for marking one student's attendance.
type RecordMarkRequest struct {
	StudentID uint   `json:"student_id" validate:"required,gt=0"`
	StatusID  uint   `json:"status_id" validate:"required,gt=0"`
	Remarks   string `json:"remarks" validate:"omitempty,max=512"`
}

// RecordCorrectRequest describes a correction to an existing record. The
// correction appends a new version; it never rewrites history.
type RecordCorrectRequest struct {
	StatusID uint   `json:"status_id" validate:"required,gt=0"`
	Reason   string `json:"reason" validate:"omitempty,min=3,max=512"`
}

// StatusLite summarizes a catalog status inside record responses.
type StatusLite struct {
	ID   uint              `json:"id"`
	Code models.StatusCode `json:"code"`
	Name string            `json:"name"`
}

// RecordResponse is returned to API clients when viewing attendance records.
type RecordResponse struct {
	ID               uint                 `json:"id"`
	SessionID        uint                 `json:"session_id"`
	StudentID        uint                 `json:"student_id"`
	Status           StatusLite           `json:"status"`
	MarkedAt         time.Time            `json:"marked_at"`
	MarkedBy         uint                 `json:"marked_by"`
	Remarks          string               `json:"remarks"`
	MarkingMethod    models.MarkingMethod `json:"marking_method"`
	Version          int                  `json:"version"`
	OriginalRecordID *uint                `json:"original_record_id"`
	IsCurrentVersion bool                 `json:"is_current_version"`
}

// NewRecordResponse converts an AttendanceRecord model into a DTO.
func NewRecordResponse(model models.AttendanceRecord) RecordResponse {
	response := RecordResponse{
		ID:               model.ID,
		SessionID:        model.SessionID,
		StudentID:        model.StudentID,
		MarkedAt:         model.MarkedAt,
		MarkedBy:         model.MarkedBy,
		Remarks:          model.Remarks,
		MarkingMethod:    model.MarkingMethod,
		Version:          model.Version,
		OriginalRecordID: model.OriginalRecordID,
		IsCurrentVersion: model.IsCurrentVersion,
	}

	if model.Status.ID != 0 {
		response.Status = StatusLite{
			ID:   model.Status.ID,
			Code: model.Status.Code,
			Name: model.Status.Name,
		}
	} else {
		response.Status = StatusLite{ID: model.StatusID}
	}

	return response
}

// NewRecordResponseSlice maps a slice of AttendanceRecord models into DTOs.
func NewRecordResponseSlice(records []models.AttendanceRecord) []RecordResponse {
	responses := make([]RecordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, NewRecordResponse(record))
	}
	return responses
}

// RecordHistoryResponse bundles every version of a record chain with its audit
// trail for compliance review.
type RecordHistoryResponse struct {
	Versions []RecordResponse     `json:"versions"`
	Audit    []AuditEntryResponse `json:"audit"`
}
