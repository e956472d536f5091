package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/attendance-api/internal/dto"
	"github.com/noah-isme/attendance-api/internal/models"
	"github.com/noah-isme/attendance-api/internal/repository"
	"github.com/noah-isme/attendance-api/internal/utils"
)

// AuditHandler exposes read access to the audit trail.
type AuditHandler struct {
	audits repository.AuditRepository
	logger zerolog.Logger
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(audits repository.AuditRepository, logger zerolog.Logger) *AuditHandler {
	return &AuditHandler{
		audits: audits,
		logger: logger.With().Str("component", "audit_handler").Logger(),
	}
}

// Register attaches the audit trail endpoint.
func (h *AuditHandler) Register(router fiber.Router) {
	router.Get("/:entityType/:entityId", h.history)
}

func (h *AuditHandler) history(c *fiber.Ctx) error {
	entityType := c.Params("entityType")
	if entityType != models.AuditEntitySession && entityType != models.AuditEntityRecord {
		return utils.SendError(c, fiber.StatusBadRequest, "entityType must be session or record")
	}

	entityID, err := parseUintParam(c, "entityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	entries, err := h.audits.History(c.Context(), entityType, entityID)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "audit history retrieved", dto.NewAuditEntryResponseSlice(entries))
}
