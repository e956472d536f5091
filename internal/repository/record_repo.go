package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/attendance-api/internal/models"
)

// RecordRepository persists attendance record version chains. Mutations carry
// their audit entry and commit both in one transaction.
type RecordRepository interface {
	CreateWithAudit(ctx context.Context, record *models.AttendanceRecord, audit *models.AuditEntry) error
	GetByID(ctx context.Context, id uint) (models.AttendanceRecord, error)
	// CurrentByChainOf resolves any version id in a record chain to the chain's
	// current-version row.
	CurrentByChainOf(ctx context.Context, id uint) (models.AttendanceRecord, error)
	// CurrentByStudentInSessions finds the student's current-version record for
	// an occasion. Callers pass every session id in the occasion's version
	// chain: records marked before an edit stay attached to the superseded id.
	CurrentByStudentInSessions(ctx context.Context, sessionIDs []uint, studentID uint) (models.AttendanceRecord, error)
	ListCurrentBySessions(ctx context.Context, sessionIDs []uint) ([]models.AttendanceRecord, error)
	SupersedeWithAudit(ctx context.Context, prior, next *models.AttendanceRecord, audit *models.AuditEntry) error
	ListVersions(ctx context.Context, rootID uint) ([]models.AttendanceRecord, error)
	// ListCurrentByStudentBetween returns the student's current-version records
	// for sessions dated within [from, to], status preloaded.
	ListCurrentByStudentBetween(ctx context.Context, studentID uint, from, to time.Time) ([]models.AttendanceRecord, error)
}

type recordRepository struct {
	db *gorm.DB
}

// NewRecordRepository instantiates a GORM-backed record repository.
func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.AttendanceRecord{}).Preload("Status")
}

func (r *recordRepository) CreateWithAudit(ctx context.Context, record *models.AttendanceRecord, audit *models.AuditEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}

		audit.EntityID = record.ID
		return tx.Create(audit).Error
	})
}

func (r *recordRepository) GetByID(ctx context.Context, id uint) (models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	if err := r.baseQuery(ctx).First(&record, id).Error; err != nil {
		return models.AttendanceRecord{}, err
	}

	return record, nil
}

func (r *recordRepository) CurrentByChainOf(ctx context.Context, id uint) (models.AttendanceRecord, error) {
	reference, err := r.GetByID(ctx, id)
	if err != nil {
		return models.AttendanceRecord{}, err
	}

	if reference.IsCurrentVersion {
		return reference, nil
	}

	root := reference.ChainRootID()

	var current models.AttendanceRecord
	if err := r.baseQuery(ctx).
		Where("(id = ? OR original_record_id = ?)", root, root).
		Where("is_current_version = ?", true).
		First(&current).Error; err != nil {
		return models.AttendanceRecord{}, err
	}

	return current, nil
}

func (r *recordRepository) CurrentByStudentInSessions(ctx context.Context, sessionIDs []uint, studentID uint) (models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	if err := r.baseQuery(ctx).
		Where("session_id IN ?", sessionIDs).
		Where("student_id = ?", studentID).
		Where("is_current_version = ?", true).
		First(&record).Error; err != nil {
		return models.AttendanceRecord{}, err
	}

	return record, nil
}

func (r *recordRepository) ListCurrentBySessions(ctx context.Context, sessionIDs []uint) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	if err := r.baseQuery(ctx).
		Where("session_id IN ?", sessionIDs).
		Where("is_current_version = ?", true).
		Order("student_id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *recordRepository) SupersedeWithAudit(ctx context.Context, prior, next *models.AttendanceRecord, audit *models.AuditEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		retire := tx.Model(&models.AttendanceRecord{}).
			Where("id = ?", prior.ID).
			Where("is_current_version = ?", true).
			Update("is_current_version", false)
		if retire.Error != nil {
			return retire.Error
		}
		if retire.RowsAffected == 0 {
			// Prior version lost currency to a concurrent correction.
			return gorm.ErrRecordNotFound
		}

		if err := tx.Create(next).Error; err != nil {
			return err
		}

		audit.EntityID = next.ID
		return tx.Create(audit).Error
	})
}

func (r *recordRepository) ListVersions(ctx context.Context, rootID uint) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	if err := r.baseQuery(ctx).
		Where("id = ? OR original_record_id = ?", rootID, rootID).
		Order("version ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *recordRepository) ListCurrentByStudentBetween(ctx context.Context, studentID uint, from, to time.Time) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	if err := r.baseQuery(ctx).
		Preload("Session").
		Select("attendance_records.*").
		Joins("JOIN sessions ON sessions.id = attendance_records.session_id").
		Where("attendance_records.student_id = ?", studentID).
		Where("attendance_records.is_current_version = ?", true).
		Where("sessions.date BETWEEN ? AND ?", from, to).
		Order("sessions.date ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}
