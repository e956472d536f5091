package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/attendance-api/internal/service"
	"github.com/noah-isme/attendance-api/internal/utils"
)

// respondServiceError translates typed service errors into HTTP responses.
// Anything unrecognized is logged and reported as an internal error.
func respondServiceError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrRecordNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDuplicateActiveSession),
		errors.Is(err, service.ErrDuplicateRecord),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrSessionNotActive):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrEnrollmentMismatch),
		errors.Is(err, service.ErrFutureDateRejected),
		errors.Is(err, service.ErrStatusUnknown),
		errors.Is(err, service.ErrReasonRequired):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	default:
		requestLogger(logger, c).Error().Err(err).Msg("request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
