package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/attendance-api/internal/cache"
	"github.com/noah-isme/attendance-api/internal/utils"
)

// RosterHandler serves the memoized roster + analytics bundle per section.
type RosterHandler struct {
	roster *cache.RosterCache
	logger zerolog.Logger
}

// NewRosterHandler constructs the handler.
func NewRosterHandler(roster *cache.RosterCache, logger zerolog.Logger) *RosterHandler {
	return &RosterHandler{
		roster: roster,
		logger: logger.With().Str("component", "roster_handler").Logger(),
	}
}

// Register attaches the roster endpoint under the sections group.
func (h *RosterHandler) Register(router fiber.Router) {
	router.Get("/:id/roster", h.bundle)
}

func (h *RosterHandler) bundle(c *fiber.Ctx) error {
	sectionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	subjectID, err := parseOptionalUintQuery(c, "subject_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	bundle, err := h.roster.Get(c.Context(), sectionID, subjectID)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "roster retrieved", bundle)
}
