package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/attendance-api/internal/models"
)

// AnalyticsRepository persists derived per-student snapshots.
type AnalyticsRepository interface {
	Upsert(ctx context.Context, snapshot *models.AnalyticsSnapshot) error
	Get(ctx context.Context, studentID uint, analysisDate time.Time) (models.AnalyticsSnapshot, error)
	MarkStale(ctx context.Context, studentID uint) error
	// ListStudentIDsNeedingRefresh returns students without a fresh snapshot
	// for analysisDate: marked stale, or last seen exceeding the absence limit
	// on an earlier date. Day rollover alone must not drop a student from the
	// exceeding report.
	ListStudentIDsNeedingRefresh(ctx context.Context, analysisDate time.Time) ([]uint, error)
	ListExceeding(ctx context.Context, analysisDate time.Time) ([]models.AnalyticsSnapshot, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository constructs the snapshot repository.
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) Upsert(ctx context.Context, snapshot *models.AnalyticsSnapshot) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "student_id"}, {Name: "analysis_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"yearly_absences", "late_count", "attendance_rate_30d",
			"risk_level", "exceeds_absence_limit", "pattern_flags",
			"stale", "last_updated",
		}),
	}).Create(snapshot).Error
}

func (r *analyticsRepository) Get(ctx context.Context, studentID uint, analysisDate time.Time) (models.AnalyticsSnapshot, error) {
	var snapshot models.AnalyticsSnapshot
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Where("analysis_date = ?", analysisDate).
		First(&snapshot).Error; err != nil {
		return models.AnalyticsSnapshot{}, err
	}

	return snapshot, nil
}

func (r *analyticsRepository) MarkStale(ctx context.Context, studentID uint) error {
	return r.db.WithContext(ctx).Model(&models.AnalyticsSnapshot{}).
		Where("student_id = ?", studentID).
		Update("stale", true).Error
}

func (r *analyticsRepository) ListStudentIDsNeedingRefresh(ctx context.Context, analysisDate time.Time) ([]uint, error) {
	fresh := r.db.Model(&models.AnalyticsSnapshot{}).
		Select("student_id").
		Where("analysis_date = ?", analysisDate).
		Where("stale = ?", false)

	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.AnalyticsSnapshot{}).
		Where("stale = ? OR (exceeds_absence_limit = ? AND analysis_date < ?)", true, true, analysisDate).
		Where("student_id NOT IN (?)", fresh).
		Distinct("student_id").
		Pluck("student_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *analyticsRepository) ListExceeding(ctx context.Context, analysisDate time.Time) ([]models.AnalyticsSnapshot, error) {
	var snapshots []models.AnalyticsSnapshot
	if err := r.db.WithContext(ctx).
		Where("analysis_date = ?", analysisDate).
		Where("exceeds_absence_limit = ?", true).
		Where("stale = ?", false).
		Order("yearly_absences DESC").
		Find(&snapshots).Error; err != nil {
		return nil, err
	}

	return snapshots, nil
}
