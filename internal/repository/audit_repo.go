package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/attendance-api/internal/models"
)

// AuditRepository reads the append-only audit trail. Writes happen inside the
// session and record repositories' transactions; this repository only appends
// on behalf of callers that have no accompanying entity mutation.
type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	History(ctx context.Context, entityType string, entityID uint) ([]models.AuditEntry, error)
	// HistoryForEntities merges the trails of several entity ids, ordered by
	// time then insertion. Used to read a whole version chain at once.
	HistoryForEntities(ctx context.Context, entityType string, entityIDs []uint) ([]models.AuditEntry, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository constructs the audit repository.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepository) History(ctx context.Context, entityType string, entityID uint) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	if err := r.db.WithContext(ctx).
		Where("entity_type = ?", entityType).
		Where("entity_id = ?", entityID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *auditRepository) HistoryForEntities(ctx context.Context, entityType string, entityIDs []uint) ([]models.AuditEntry, error) {
	if len(entityIDs) == 0 {
		return []models.AuditEntry{}, nil
	}

	var entries []models.AuditEntry
	if err := r.db.WithContext(ctx).
		Where("entity_type = ?", entityType).
		Where("entity_id IN ?", entityIDs).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
