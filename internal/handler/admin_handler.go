package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/attendance-api/internal/service"
	"github.com/noah-isme/attendance-api/internal/utils"
)

// AdminHandler exposes operational endpoints reserved for administrators.
type AdminHandler struct {
	sweeper service.SweepService
	logger  zerolog.Logger
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(sweeper service.SweepService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		sweeper: sweeper,
		logger:  logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register attaches the admin endpoints.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Post("/sweep", h.sweep)
}

// sweep triggers the auto-completion pass immediately instead of waiting for
// the background ticker.
func (h *AdminHandler) sweep(c *fiber.Ctx) error {
	completed, err := h.sweeper.AutoCompleteExpired(c.Context(), time.Now())
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().Int("completed", len(completed)).Msg("manual sweep finished")

	return utils.SendSuccess(c, "sweep completed", fiber.Map{
		"completed_count": len(completed),
		"sessions":        completed,
	})
}
