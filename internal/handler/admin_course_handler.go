package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/coursework-engine/internal/dto"
	"github.com/noah-isme/coursework-engine/internal/service"
	"github.com/noah-isme/coursework-engine/internal/utils"
)

// AdminCourseHandler exposes the course leaderboard.
type AdminCourseHandler struct {
	leaderboard service.LeaderboardService
	logger      zerolog.Logger
}

// NewAdminCourseHandler constructs the handler.
func NewAdminCourseHandler(leaderboard service.LeaderboardService, logger zerolog.Logger) *AdminCourseHandler {
	return &AdminCourseHandler{
		leaderboard: leaderboard,
		logger:      logger.With().Str("component", "admin_course_handler").Logger(),
	}
}

// Register attaches course endpoints to the router group.
func (h *AdminCourseHandler) Register(router fiber.Router) {
	router.Post("/:id/leaderboard/rebuild", h.rebuild)
	router.Get("/:id/leaderboard", h.view)
}

func (h *AdminCourseHandler) rebuild(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.leaderboard.Rebuild(withRequestContext(c), id); err != nil {
		return sendEngineError(c, h.logger, err, "failed to rebuild leaderboard")
	}

	message := fmt.Sprintf("Leaderboard rebuilt for course %d", id)
	return utils.SendSuccess(c, message, dto.ActionResponse{
		Status:  string(service.ActionStatusOK),
		Message: message,
	})
}

func (h *AdminCourseHandler) view(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	leaderboard, err := h.leaderboard.Get(withRequestContext(c), id)
	if err != nil {
		return sendEngineError(c, h.logger, err, "failed to load leaderboard")
	}

	return utils.OK(c, leaderboard, "leaderboard", map[string]int{"entries": len(leaderboard.Entries)})
}
