package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/attendance-api/internal/service"
	"github.com/noah-isme/attendance-api/internal/utils"
)

// AnalyticsHandler exposes derived per-student attendance statistics.
type AnalyticsHandler struct {
	service service.AnalyticsService
	logger  zerolog.Logger
}

// NewAnalyticsHandler constructs the handler.
func NewAnalyticsHandler(service service.AnalyticsService, logger zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		logger:  logger.With().Str("component", "analytics_handler").Logger(),
	}
}

// RegisterStudentRoutes attaches the per-student analytics endpoint.
func (h *AnalyticsHandler) RegisterStudentRoutes(router fiber.Router) {
	router.Get("/:id/analytics", h.snapshot)
}

// RegisterAnalyticsRoutes attaches the aggregate analytics endpoints.
func (h *AnalyticsHandler) RegisterAnalyticsRoutes(router fiber.Router) {
	router.Get("/critical", h.critical)
}

func (h *AnalyticsHandler) snapshot(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	snapshot, err := h.service.Snapshot(c.Context(), studentID, time.Now())
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "analytics retrieved", snapshot)
}

func (h *AnalyticsHandler) critical(c *fiber.Ctx) error {
	cases, err := h.service.CriticalCases(c.Context(), time.Now())
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "critical cases retrieved", cases)
}
