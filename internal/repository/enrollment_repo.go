package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/attendance-api/internal/models"
)

// EnrollmentRepository answers which students belong to a section on a date.
type EnrollmentRepository interface {
	ListStudentIDs(ctx context.Context, sectionID uint, date time.Time) ([]uint, error)
	IsEnrolled(ctx context.Context, studentID, sectionID uint, date time.Time) (bool, error)
	Roster(ctx context.Context, sectionID uint, date time.Time) ([]models.Student, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository constructs the enrollment repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) activeOn(ctx context.Context, sectionID uint, date time.Time) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("section_id = ?", sectionID).
		Where("start_date <= ?", date).
		Where("end_date IS NULL OR end_date >= ?", date)
}

func (r *enrollmentRepository) ListStudentIDs(ctx context.Context, sectionID uint, date time.Time) ([]uint, error) {
	var ids []uint
	if err := r.activeOn(ctx, sectionID, date).
		Order("student_id ASC").
		Pluck("student_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *enrollmentRepository) IsEnrolled(ctx context.Context, studentID, sectionID uint, date time.Time) (bool, error) {
	var count int64
	if err := r.activeOn(ctx, sectionID, date).
		Where("student_id = ?", studentID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *enrollmentRepository) Roster(ctx context.Context, sectionID uint, date time.Time) ([]models.Student, error) {
	var students []models.Student
	if err := r.db.WithContext(ctx).Model(&models.Student{}).
		Joins("JOIN enrollments ON enrollments.student_id = students.id").
		Where("enrollments.section_id = ?", sectionID).
		Where("enrollments.start_date <= ?", date).
		Where("enrollments.end_date IS NULL OR enrollments.end_date >= ?", date).
		Order("students.name ASC").
		Find(&students).Error; err != nil {
		return nil, err
	}

	return students, nil
}
