package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursework-engine/internal/dto"
	"github.com/noah-isme/coursework-engine/internal/service"
	"github.com/noah-isme/coursework-engine/internal/utils"
)

// AdminProjectHandler exposes peer review assignment and project scoring.
type AdminProjectHandler struct {
	assignment  service.PeerReviewAssignmentService
	scoring     service.ProjectScoringService
	statistics  service.StatisticsService
	validator   *validator.Validate
	defaultSeed int64
	logger      zerolog.Logger
}

// NewAdminProjectHandler constructs the handler. defaultSeed is used when a
// request does not carry its own seed.
func NewAdminProjectHandler(assignment service.PeerReviewAssignmentService, scoring service.ProjectScoringService, statistics service.StatisticsService, validate *validator.Validate, defaultSeed int64, logger zerolog.Logger) *AdminProjectHandler {
	return &AdminProjectHandler{
		assignment:  assignment,
		scoring:     scoring,
		statistics:  statistics,
		validator:   validate,
		defaultSeed: defaultSeed,
		logger:      logger.With().Str("component", "admin_project_handler").Logger(),
	}
}

// Register attaches project endpoints to the router group.
func (h *AdminProjectHandler) Register(router fiber.Router) {
	router.Post("/:id/assign-reviews", h.assignReviews)
	router.Post("/:id/score", h.score)
	router.Post("/:id/optional-reviews", h.addOptionalReview)
	router.Get("/:id/statistics", h.statisticsView)
}

func (h *AdminProjectHandler) assignReviews(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.AssignReviewsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}
	seed := h.defaultSeed
	if payload.Seed != nil {
		seed = *payload.Seed
	}

	result, err := h.assignment.Assign(withRequestContext(c), id, seed)
	if err != nil {
		return sendEngineError(c, h.logger, err, "failed to assign peer reviews")
	}
	return sendActionResult(c, result)
}

func (h *AdminProjectHandler) score(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	result, err := h.scoring.Score(withRequestContext(c), id)
	if err != nil {
		return sendEngineError(c, h.logger, err, "failed to score project")
	}
	return sendActionResult(c, result)
}

func (h *AdminProjectHandler) addOptionalReview(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.OptionalReviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if h.validator != nil {
		if err := h.validator.Struct(payload); err != nil {
			return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
		}
	}

	review, err := h.assignment.AddOptionalReview(withRequestContext(c), id, payload)
	if err != nil {
		return sendEngineError(c, h.logger, err, "failed to add optional review")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "optional review added", review)
}

func (h *AdminProjectHandler) statisticsView(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var query dto.StatisticsQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid force flag")
	}

	stats, err := h.statistics.ProjectStatistics(withRequestContext(c), id, query.Force)
	if err != nil {
		return sendEngineError(c, h.logger, err, "failed to compute project statistics")
	}

	return utils.SendSuccess(c, "project statistics", dto.NewProjectStatisticsResponse(stats, service.ProjectStatisticsFields))
}
