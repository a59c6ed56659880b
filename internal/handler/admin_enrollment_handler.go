package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursework-engine/internal/dto"
	"github.com/noah-isme/coursework-engine/internal/service"
	"github.com/noah-isme/coursework-engine/internal/utils"
)

// AdminEnrollmentHandler exposes enrollment scoring switches.
type AdminEnrollmentHandler struct {
	enrollments service.EnrollmentService
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewAdminEnrollmentHandler constructs the handler.
func NewAdminEnrollmentHandler(enrollments service.EnrollmentService, validate *validator.Validate, logger zerolog.Logger) *AdminEnrollmentHandler {
	return &AdminEnrollmentHandler{
		enrollments: enrollments,
		validator:   validate,
		logger:      logger.With().Str("component", "admin_enrollment_handler").Logger(),
	}
}

// Register attaches enrollment endpoints to the router group.
func (h *AdminEnrollmentHandler) Register(router fiber.Router) {
	router.Patch("/:id/learning-in-public", h.setLearningInPublic)
}

func (h *AdminEnrollmentHandler) setLearningInPublic(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.LearningInPublicRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
	}

	enrollment, err := h.enrollments.SetLearningInPublicDisabled(withRequestContext(c), id, *payload.Disabled)
	if err != nil {
		return sendEngineError(c, h.logger, err, "failed to update enrollment")
	}

	return utils.SendSuccess(c, "enrollment updated", enrollment)
}
