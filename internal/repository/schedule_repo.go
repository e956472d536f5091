package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/attendance-api/internal/models"
)

// ScheduleRepository resolves the planned window for a teacher/section/subject
// on a weekday.
type ScheduleRepository interface {
	Slot(ctx context.Context, teacherID, sectionID uint, subjectID *uint, weekday int) (models.ScheduleSlot, error)
}

type scheduleRepository struct {
	db *gorm.DB
}

// NewScheduleRepository constructs the schedule repository.
func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Slot(ctx context.Context, teacherID, sectionID uint, subjectID *uint, weekday int) (models.ScheduleSlot, error) {
	query := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Where("section_id = ?", sectionID).
		Where("weekday = ?", weekday)

	if subjectID != nil {
		query = query.Where("subject_id = ?", *subjectID)
	} else {
		query = query.Where("subject_id IS NULL")
	}

	var slot models.ScheduleSlot
	if err := query.First(&slot).Error; err != nil {
		return models.ScheduleSlot{}, err
	}

	return slot, nil
}
