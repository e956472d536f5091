package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/attendance-api/internal/models"
)

// StatusRepository reads the immutable attendance status catalog.
type StatusRepository interface {
	List(ctx context.Context) ([]models.AttendanceStatus, error)
	GetByID(ctx context.Context, id uint) (models.AttendanceStatus, error)
	GetByCode(ctx context.Context, code models.StatusCode) (models.AttendanceStatus, error)
}

type statusRepository struct {
	db *gorm.DB
}

// NewStatusRepository constructs the status catalog repository.
func NewStatusRepository(db *gorm.DB) StatusRepository {
	return &statusRepository{db: db}
}

func (r *statusRepository) List(ctx context.Context) ([]models.AttendanceStatus, error) {
	var statuses []models.AttendanceStatus
	if err := r.db.WithContext(ctx).Order("sort_order ASC").Find(&statuses).Error; err != nil {
		return nil, err
	}

	return statuses, nil
}

func (r *statusRepository) GetByID(ctx context.Context, id uint) (models.AttendanceStatus, error) {
	var status models.AttendanceStatus
	if err := r.db.WithContext(ctx).First(&status, id).Error; err != nil {
		return models.AttendanceStatus{}, err
	}

	return status, nil
}

func (r *statusRepository) GetByCode(ctx context.Context, code models.StatusCode) (models.AttendanceStatus, error) {
	var status models.AttendanceStatus
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&status).Error; err != nil {
		return models.AttendanceStatus{}, err
	}

	return status, nil
}
