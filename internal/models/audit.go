package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit entity types.
const (
	AuditEntitySession = "session"
	AuditEntityRecord  = "record"
)

// Audit actions.
const (
	AuditActionCreate   = "create"
	AuditActionUpdate   = "update"
	AuditActionComplete = "complete"
	AuditActionEdit     = "edit"
	AuditActionVerify   = "verify"
)

// AuditEntry is an append-only trail row describing a single mutation to a
// session or record. Entries are written in the same transaction as the
// mutation they describe and are never updated or deleted.
type AuditEntry struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	EntityType string            `gorm:"size:16;not null;index:idx_audit_entity" json:"entity_type"`
	EntityID   uint              `gorm:"not null;index:idx_audit_entity" json:"entity_id"`
	Action     string            `gorm:"size:16;not null" json:"action"`
	ActorID    uint              `gorm:"not null" json:"actor_id"`
	OldValues  datatypes.JSONMap `gorm:"type:json" json:"old_values"`
	NewValues  datatypes.JSONMap `gorm:"type:json" json:"new_values"`
	Reason     string            `gorm:"size:512" json:"reason"`
	CreatedAt  time.Time         `json:"created_at"`
}
