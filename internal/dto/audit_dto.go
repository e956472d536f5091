package dto

import (
	"time"

	"github.com/noah-isme/attendance-api/internal/models"
)

// AuditEntryResponse serializes a single audit trail row.
type AuditEntryResponse struct {
	ID         uint                   `json:"id"`
	EntityType string                 `json:"entity_type"`
	EntityID   uint                   `json:"entity_id"`
	Action     string                 `json:"action"`
	ActorID    uint                   `json:"actor_id"`
	OldValues  map[string]interface{} `json:"old_values"`
	NewValues  map[string]interface{} `json:"new_values"`
	Reason     string                 `json:"reason"`
	Timestamp  time.Time              `json:"timestamp"`
}

// NewAuditEntryResponse converts an AuditEntry model into a DTO.
func NewAuditEntryResponse(model models.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:         model.ID,
		EntityType: model.EntityType,
		EntityID:   model.EntityID,
		Action:     model.Action,
		ActorID:    model.ActorID,
		OldValues:  model.OldValues,
		NewValues:  model.NewValues,
		Reason:     model.Reason,
		Timestamp:  model.CreatedAt,
	}
}

// NewAuditEntryResponseSlice maps a slice of AuditEntry models into DTOs.
func NewAuditEntryResponseSlice(entries []models.AuditEntry) []AuditEntryResponse {
	responses := make([]AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, NewAuditEntryResponse(entry))
	}
	return responses
}
