// Package routes defines the API routes and URL structure
package routes

import (
	fiber "github.com/gofiber/fiber/v2"

	"github.com/orionsurvey/cutouts/internal/api/v1/handlers"
)

// API base configuration
const (
	// APIv1Prefix is the prefix for all API endpoints
	APIv1Prefix = "/api/v1"
)

// RegisterRoutes configures all the v1 routes
//
// NOTE: route ordering matters because routes match in registration
// order; fixed segments must be registered before :id params.
func RegisterRoutes(app *fiber.App, jobHandler *handlers.JobHandler) {
	app.Get("/health", jobHandler.Health)

	v1 := app.Group(APIv1Prefix)

	jobs := v1.Group("/jobs")
	jobs.Get("", jobHandler.ListJobs)
	jobs.Post("", jobHandler.CreateJob)
	jobs.Get("/:id", jobHandler.GetJob)
	jobs.Delete("/:id", jobHandler.DeleteJob)
	jobs.Post("/:id/phase", jobHandler.UpdatePhase)
	jobs.Post("/:id/destruction", jobHandler.UpdateDestruction)
	jobs.Post("/:id/executionduration", jobHandler.UpdateExecutionDuration)
	jobs.Get("/:id/results", jobHandler.GetResults)
}
