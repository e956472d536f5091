package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/attendance-api/internal/cache"
	"github.com/noah-isme/attendance-api/internal/dto"
	"github.com/noah-isme/attendance-api/internal/service"
	"github.com/noah-isme/attendance-api/internal/utils"
)

// RecordHandler wires attendance record HTTP routes. After a successful
// mutation it invalidates the roster cache for the affected section/subject,
// keeping cache staleness caller-driven.
type RecordHandler struct {
	records  service.RecordService
	sessions service.SessionService
	roster   *cache.RosterCache
	logger   zerolog.Logger
}

// NewRecordHandler constructs the handler. The roster cache may be nil when no
// consumer-side memoization is wired.
func NewRecordHandler(records service.RecordService, sessions service.SessionService, roster *cache.RosterCache, logger zerolog.Logger) *RecordHandler {
	return &RecordHandler{
		records:  records,
		sessions: sessions,
		roster:   roster,
		logger:   logger.With().Str("component", "record_handler").Logger(),
	}
}

// RegisterSessionRoutes attaches the per-session record endpoints.
func (h *RecordHandler) RegisterSessionRoutes(router fiber.Router) {
	router.Get("/:id/records", h.listForSession)
	router.Post("/:id/records", h.mark)
}

// RegisterRecordRoutes attaches the per-record endpoints. The version history
// exposes superseded rows and marker identities, so it sits behind adminOnly.
func (h *RecordHandler) RegisterRecordRoutes(router fiber.Router, adminOnly fiber.Handler) {
	router.Post("/:id/correct", h.correct)
	router.Get("/:id/history", adminOnly, h.history)
}

func (h *RecordHandler) listForSession(c *fiber.Ctx) error {
	sessionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	records, err := h.records.CurrentForSession(c.Context(), sessionID)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "records retrieved", records)
}

func (h *RecordHandler) mark(c *fiber.Ctx) error {
	sessionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.RecordMarkRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	record, err := h.records.Mark(c.Context(), sessionID, payload, actorFromContext(c))
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	// The mark may have landed on a newer version of the session chain; the
	// record knows which one.
	h.invalidateRoster(c, record.SessionID)

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attendance marked", record)
}

func (h *RecordHandler) correct(c *fiber.Ctx) error {
	recordID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.RecordCorrectRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	record, err := h.records.Correct(c.Context(), recordID, payload, actorFromContext(c))
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	h.invalidateRoster(c, record.SessionID)

	return utils.SendSuccess(c, "attendance corrected", record)
}

func (h *RecordHandler) history(c *fiber.Ctx) error {
	recordID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	history, err := h.records.History(c.Context(), recordID)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "record history retrieved", history)
}

func (h *RecordHandler) invalidateRoster(c *fiber.Ctx, sessionID uint) {
	if h.roster == nil {
		return
	}

	session, err := h.sessions.Get(c.Context(), sessionID)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Uint("session_id", sessionID).Msg("failed to resolve session for roster invalidation")
		return
	}

	h.roster.Invalidate(session.SectionID, session.SubjectID)
}
