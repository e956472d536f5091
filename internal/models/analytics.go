package models

import (
	"time"

	"gorm.io/datatypes"
)

// RiskLevel tiers a student's attendance risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// YearlyAbsenceLimit is the number of absences per school year above which a
// student exceeds the allowed limit.
const YearlyAbsenceLimit = 18

// AnalyticsSnapshot holds derived per-student attendance statistics for one
// analysis date. Snapshots are recomputed whole from current-version records,
// never patched, so they always reflect a single consistent derivation.
type AnalyticsSnapshot struct {
	ID                  uint              `gorm:"primaryKey" json:"id"`
	StudentID           uint              `gorm:"not null;uniqueIndex:idx_snapshot_student_date" json:"student_id"`
	AnalysisDate        time.Time         `gorm:"type:date;not null;uniqueIndex:idx_snapshot_student_date" json:"analysis_date"`
	YearlyAbsences      int               `gorm:"not null;default:0" json:"yearly_absences"`
	LateCount           int               `gorm:"not null;default:0" json:"late_count"`
	AttendanceRate30d   float64           `gorm:"column:attendance_rate_30d;not null;default:0" json:"attendance_rate_30d"`
	RiskLevel           RiskLevel         `gorm:"size:16;not null;default:low" json:"risk_level"`
	ExceedsAbsenceLimit bool              `gorm:"not null;default:false" json:"exceeds_absence_limit"`
	PatternFlags        datatypes.JSONMap `gorm:"type:json" json:"pattern_flags"`
	Stale               bool              `gorm:"not null;default:false;index" json:"stale"`
	LastUpdated         time.Time         `gorm:"not null" json:"last_updated"`
}

// Fresh reports whether the snapshot can be served for the given analysis date
// without recomputation.
func (s AnalyticsSnapshot) Fresh(asOf time.Time) bool {
	y1, m1, d1 := s.AnalysisDate.Date()
	y2, m2, d2 := asOf.Date()
	return !s.Stale && y1 == y2 && m1 == m2 && d1 == d2
}
