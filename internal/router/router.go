package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/coursework-engine/internal/config"
	"github.com/noah-isme/coursework-engine/internal/handler"
	"github.com/noah-isme/coursework-engine/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	HomeworkHandler   *handler.AdminHomeworkHandler
	ProjectHandler    *handler.AdminProjectHandler
	CourseHandler     *handler.AdminCourseHandler
	EnrollmentHandler *handler.AdminEnrollmentHandler
	HealthProbes      []handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))

	app.Get("/metrics", observability.MetricsHandler())

	// Engine triggers
	admin := app.Group("/api/admin")
	if deps.HomeworkHandler != nil {
		deps.HomeworkHandler.Register(admin.Group("/homeworks"))
	}
	if deps.ProjectHandler != nil {
		deps.ProjectHandler.Register(admin.Group("/projects"))
	}
	if deps.CourseHandler != nil {
		deps.CourseHandler.Register(admin.Group("/courses"))
	}
	if deps.EnrollmentHandler != nil {
		deps.EnrollmentHandler.Register(admin.Group("/enrollments"))
	}
}
