// Package app assembles the API server
package app

import (
	fiber "github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/orionsurvey/cutouts/internal/api/v1/handlers"
	"github.com/orionsurvey/cutouts/internal/api/v1/routes"
)

// NewApp builds the fiber application with middleware and v1 routes
func NewApp(jobHandler *handlers.JobHandler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})

	app.Use(fiberlogger.New())

	routes.RegisterRoutes(app, jobHandler)

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
