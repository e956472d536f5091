package dto

import (
	"time"

	"github.com/noah-isme/attendance-api/internal/models"
)

// AnalyticsResponse serializes a derived per-student snapshot.
type AnalyticsResponse struct {
	StudentID           uint                   `json:"student_id"`
	AnalysisDate        string                 `json:"analysis_date"`
	YearlyAbsences      int                    `json:"yearly_absences"`
	LateCount           int                    `json:"late_count"`
	AttendanceRate30d   float64                `json:"attendance_rate_30d"`
	RiskLevel           models.RiskLevel       `json:"risk_level"`
	ExceedsAbsenceLimit bool                   `json:"exceeds_absence_limit"`
	PatternFlags        map[string]interface{} `json:"pattern_flags"`
	LastUpdated         time.Time              `json:"last_updated"`
}

// NewAnalyticsResponse converts an AnalyticsSnapshot model into a DTO.
func NewAnalyticsResponse(model models.AnalyticsSnapshot) AnalyticsResponse {
	return AnalyticsResponse{
		StudentID:           model.StudentID,
		AnalysisDate:        model.AnalysisDate.Format("2006-01-02"),
		YearlyAbsences:      model.YearlyAbsences,
		LateCount:           model.LateCount,
		AttendanceRate30d:   model.AttendanceRate30d,
		RiskLevel:           model.RiskLevel,
		ExceedsAbsenceLimit: model.ExceedsAbsenceLimit,
		PatternFlags:        model.PatternFlags,
		LastUpdated:         model.LastUpdated,
	}
}

// NewAnalyticsResponseSlice maps a slice of snapshots into DTOs.
func NewAnalyticsResponseSlice(snapshots []models.AnalyticsSnapshot) []AnalyticsResponse {
	responses := make([]AnalyticsResponse, 0, len(snapshots))
	for _, snapshot := range snapshots {
		responses = append(responses, NewAnalyticsResponse(snapshot))
	}
	return responses
}

// RosterStudent pairs a student with their snapshot inside a roster bundle.
type RosterStudent struct {
	ID        uint               `json:"id"`
	Name      string             `json:"name"`
	Analytics *AnalyticsResponse `json:"analytics"`
}

// RosterBundle is the memoized roster + analytics payload served per
// (section, subject).
type RosterBundle struct {
	SectionID uint            `json:"section_id"`
	SubjectID *uint           `json:"subject_id"`
	AsOf      string          `json:"as_of"`
	Students  []RosterStudent `json:"students"`
	LoadedAt  time.Time       `json:"loaded_at"`
}
