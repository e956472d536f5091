package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/attendance-api/internal/config"
	"github.com/noah-isme/attendance-api/internal/handler"
	"github.com/noah-isme/attendance-api/internal/middleware"
	"github.com/noah-isme/attendance-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SessionHandler   *handler.SessionHandler
	RecordHandler    *handler.RecordHandler
	AnalyticsHandler *handler.AnalyticsHandler
	RosterHandler    *handler.RosterHandler
	AuditHandler     *handler.AuditHandler
	AdminHandler     *handler.AdminHandler
	JWTMiddleware    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.SessionHandler != nil {
		sessions := api.Group("/sessions", jwtMiddleware)
		deps.SessionHandler.Register(sessions)

		if deps.RecordHandler != nil {
			deps.RecordHandler.RegisterSessionRoutes(sessions)
		}
	}

	adminOnly := middleware.RequireRole("admin")

	if deps.RecordHandler != nil {
		records := api.Group("/records", jwtMiddleware)
		deps.RecordHandler.RegisterRecordRoutes(records, adminOnly)
	}

	if deps.AnalyticsHandler != nil {
		students := api.Group("/students", jwtMiddleware)
		deps.AnalyticsHandler.RegisterStudentRoutes(students)

		analytics := api.Group("/analytics", jwtMiddleware, adminOnly)
		deps.AnalyticsHandler.RegisterAnalyticsRoutes(analytics)
	}

	if deps.RosterHandler != nil {
		sections := api.Group("/sections", jwtMiddleware)
		deps.RosterHandler.Register(sections)
	}

	if deps.AuditHandler != nil {
		audit := api.Group("/audit", jwtMiddleware, adminOnly)
		deps.AuditHandler.Register(audit)
	}

	if deps.AdminHandler != nil {
		admin := api.Group("/admin",
			jwtMiddleware,
			adminOnly,
			middleware.RateLimit("admin_sweep", 5, time.Minute),
		)
		deps.AdminHandler.Register(admin)
	}
}
