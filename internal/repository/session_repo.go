package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/attendance-api/internal/models"
)

// SessionRepository persists session version chains. Every mutation takes the
// audit entry describing it and writes both rows in one transaction, so no
// session mutation can succeed without its audit trail.
type SessionRepository interface {
	CreateWithAudit(ctx context.Context, session *models.Session, audit *models.AuditEntry) error
	GetByID(ctx context.Context, id uint) (models.Session, error)
	// CurrentByChainOf resolves any version id in a session chain to the
	// chain's current-version row.
	CurrentByChainOf(ctx context.Context, id uint) (models.Session, error)
	FindActive(ctx context.Context, teacherID, sectionID uint, subjectID *uint, date time.Time) (models.Session, error)
	UpdateWithAudit(ctx context.Context, session *models.Session, audit *models.AuditEntry) error
	SupersedeWithAudit(ctx context.Context, parent, next *models.Session, audit *models.AuditEntry) error
	ListExpiredActive(ctx context.Context, now time.Time) ([]models.Session, error)
	ListChain(ctx context.Context, rootID uint) ([]models.Session, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository instantiates a GORM-backed session repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) CreateWithAudit(ctx context.Context, session *models.Session, audit *models.AuditEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}

		audit.EntityID = session.ID
		return tx.Create(audit).Error
	})
}

func (r *sessionRepository) GetByID(ctx context.Context, id uint) (models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return models.Session{}, err
	}

	return session, nil
}

func (r *sessionRepository) CurrentByChainOf(ctx context.Context, id uint) (models.Session, error) {
	reference, err := r.GetByID(ctx, id)
	if err != nil {
		return models.Session{}, err
	}

	if reference.IsCurrentVersion {
		return reference, nil
	}

	root := reference.ChainRootID()

	var current models.Session
	if err := r.db.WithContext(ctx).
		Where("(id = ? OR original_session_id = ?)", root, root).
		Where("is_current_version = ?", true).
		First(&current).Error; err != nil {
		return models.Session{}, err
	}

	return current, nil
}

func (r *sessionRepository) FindActive(ctx context.Context, teacherID, sectionID uint, subjectID *uint, date time.Time) (models.Session, error) {
	query := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Where("section_id = ?", sectionID).
		Where("date = ?", date).
		Where("state = ?", models.SessionActive).
		Where("is_current_version = ?", true)

	if subjectID != nil {
		query = query.Where("subject_id = ?", *subjectID)
	} else {
		query = query.Where("subject_id IS NULL")
	}

	var session models.Session
	if err := query.First(&session).Error; err != nil {
		return models.Session{}, err
	}

	return session, nil
}

func (r *sessionRepository) UpdateWithAudit(ctx context.Context, session *models.Session, audit *models.AuditEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(session).Error; err != nil {
			return err
		}

		audit.EntityID = session.ID
		return tx.Create(audit).Error
	})
}

func (r *sessionRepository) SupersedeWithAudit(ctx context.Context, parent, next *models.Session, audit *models.AuditEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		retire := tx.Model(&models.Session{}).
			Where("id = ?", parent.ID).
			Where("is_current_version = ?", true).
			Update("is_current_version", false)
		if retire.Error != nil {
			return retire.Error
		}
		if retire.RowsAffected == 0 {
			// Parent already superseded by a concurrent edit.
			return gorm.ErrRecordNotFound
		}

		if err := tx.Create(next).Error; err != nil {
			return err
		}

		audit.EntityID = next.ID
		return tx.Create(audit).Error
	})
}

func (r *sessionRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]models.Session, error) {
	var sessions []models.Session
	if err := r.db.WithContext(ctx).
		Where("state = ?", models.SessionActive).
		Where("is_current_version = ?", true).
		Where("scheduled_end < ?", now).
		Order("scheduled_end ASC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *sessionRepository) ListChain(ctx context.Context, rootID uint) ([]models.Session, error) {
	var sessions []models.Session
	if err := r.db.WithContext(ctx).
		Where("id = ? OR original_session_id = ?", rootID, rootID).
		Order("version ASC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}

	return sessions, nil
}
