package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/od-tracker-api/internal/config"
	"github.com/noah-isme/od-tracker-api/internal/handler"
	"github.com/noah-isme/od-tracker-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	ODRequestHandler *handler.ODRequestHandler
	HealthHandler    *handler.HealthHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	if deps.HealthHandler != nil {
		deps.HealthHandler.Register(app)
	}

	od := app.Group("/od", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(od)
	}

	if deps.ODRequestHandler != nil {
		deps.ODRequestHandler.Register(od)
	}
}
