package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursework-engine/internal/dto"
	"github.com/noah-isme/coursework-engine/internal/service"
	"github.com/noah-isme/coursework-engine/internal/utils"
)

// AdminHomeworkHandler exposes homework grading triggers.
type AdminHomeworkHandler struct {
	scoring    service.HomeworkScoringService
	statistics service.StatisticsService
	logger     zerolog.Logger
}

// NewAdminHomeworkHandler constructs the handler.
func NewAdminHomeworkHandler(scoring service.HomeworkScoringService, statistics service.StatisticsService, logger zerolog.Logger) *AdminHomeworkHandler {
	return &AdminHomeworkHandler{
		scoring:    scoring,
		statistics: statistics,
		logger:     logger.With().Str("component", "admin_homework_handler").Logger(),
	}
}

// Register attaches homework endpoints to the router group.
func (h *AdminHomeworkHandler) Register(router fiber.Router) {
	router.Post("/:id/score", h.score)
	router.Post("/:id/fill-correct-answers", h.fillCorrectAnswers)
	router.Get("/:id/statistics", h.statisticsView)
}

func (h *AdminHomeworkHandler) score(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	result, err := h.scoring.Score(withRequestContext(c), id)
	if err != nil {
		return sendEngineError(c, h.logger, err, "failed to score homework")
	}
	return sendActionResult(c, result)
}

func (h *AdminHomeworkHandler) fillCorrectAnswers(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	result, err := h.scoring.FillCorrectAnswers(withRequestContext(c), id)
	if err != nil {
		return sendEngineError(c, h.logger, err, "failed to fill correct answers")
	}
	return sendActionResult(c, result)
}

func (h *AdminHomeworkHandler) statisticsView(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	var query dto.StatisticsQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid force flag")
	}

	stats, err := h.statistics.HomeworkStatistics(withRequestContext(c), id, query.Force)
	if err != nil {
		return sendEngineError(c, h.logger, err, "failed to compute homework statistics")
	}

	return utils.SendSuccess(c, "homework statistics", dto.NewHomeworkStatisticsResponse(stats, service.HomeworkStatisticsFields))
}
