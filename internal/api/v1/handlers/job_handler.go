// Package handlers provides HTTP request handling
package handlers

import (
	"context"
	"errors"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/orionsurvey/cutouts/internal/db/models"
	"github.com/orionsurvey/cutouts/internal/db/repos"
	"github.com/orionsurvey/cutouts/internal/logger"
	"github.com/orionsurvey/cutouts/internal/services"
	"github.com/orionsurvey/cutouts/internal/types"
)

// OwnerHeader carries the authenticated requester identity, set by the
// gateway in front of this service. Authentication itself is handled
// upstream.
const OwnerHeader = "X-Auth-Request-User"

// JobHandler handles HTTP requests for cutout jobs
type JobHandler struct {
	jobService *services.Job
	dispatcher *services.Dispatcher
	locator    *services.Locator
}

// NewJobHandler creates a new instance of JobHandler
func NewJobHandler(jobService *services.Job, dispatcher *services.Dispatcher, locator *services.Locator) *JobHandler {
	return &JobHandler{
		jobService: jobService,
		dispatcher: dispatcher,
		locator:    locator,
	}
}

// CreateJobRequest is the request body for creating a job. Stencils may
// be given structured or as SODA-style strings (circle: "ra dec radius",
// polygon: "ra1 dec1 ra2 dec2 ...").
type CreateJobRequest struct {
	RunID             string           `json:"run_id,omitempty"`
	DatasetIDs        []string         `json:"dataset_ids"`
	Stencils          []models.Stencil `json:"stencils,omitempty"`
	Circle            string           `json:"circle,omitempty"`
	Polygon           string           `json:"polygon,omitempty"`
	ExecutionDuration int              `json:"execution_duration,omitempty"`
}

func owner(c *fiber.Ctx) string {
	if user := c.Get(OwnerHeader); user != "" {
		return user
	}
	return "anonymous"
}

// CreateJob handles creating a new PENDING job
func (h *JobHandler) CreateJob(c *fiber.Ctx) error {
	var req CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput("Invalid request body"))
	}

	stencils := req.Stencils
	if req.Circle != "" {
		s, err := models.ParseStencil("CIRCLE", req.Circle)
		if err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(types.ErrInvalidInput(err.Error()))
		}
		stencils = append(stencils, *s)
	}
	if req.Polygon != "" {
		s, err := models.ParseStencil("POLYGON", req.Polygon)
		if err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(types.ErrInvalidInput(err.Error()))
		}
		stencils = append(stencils, *s)
	}

	params := models.Parameters{DatasetIDs: req.DatasetIDs, Stencils: stencils}
	if err := params.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(types.ErrInvalidInput(err.Error()))
	}

	job, err := h.jobService.Create(c.Context(), services.CreateRequest{
		Owner:             owner(c),
		RunID:             req.RunID,
		Parameters:        params,
		ExecutionDuration: req.ExecutionDuration,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrServer(err.Error()))
	}

	return c.Status(fiber.StatusCreated).JSON(types.Success(job))
}

// GetJob handles retrieving a job by ID
func (h *JobHandler) GetJob(c *fiber.Ctx) error {
	job, err := h.jobService.Get(c.Context(), owner(c), c.Params("id"))
	if err != nil {
		return jobError(c, err)
	}
	return c.JSON(types.Success(job))
}

// ListJobs handles retrieving the owner's jobs with optional phase filters
func (h *JobHandler) ListJobs(c *fiber.Ctx) error {
	opts := &models.ListOptions{Limit: c.QueryInt("limit", models.DefaultLimit)}
	for _, p := range c.Context().QueryArgs().PeekMulti("phase") {
		phase, err := models.ParsePhase(string(p))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
		}
		opts.Phases = append(opts.Phases, phase)
	}

	jobs, err := h.jobService.List(c.Context(), owner(c), opts)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrServer(err.Error()))
	}
	return c.JSON(types.Success(map[string]interface{}{"jobs": jobs}))
}

// PhaseRequest is the request body for a phase action
type PhaseRequest struct {
	Phase string `json:"phase"`
}

// UpdatePhase handles RUN and ABORT phase actions. RUN dispatches the
// job off the request path: the response returns as soon as the job is
// accepted for scheduling, not when it is queued.
func (h *JobHandler) UpdatePhase(c *fiber.Ctx) error {
	var req PhaseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput("Invalid request body"))
	}

	id := c.Params("id")
	switch req.Phase {
	case "RUN":
		job, err := h.jobService.Get(c.Context(), owner(c), id)
		if err != nil {
			return jobError(c, err)
		}
		go func(jobID string) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.dispatcher.Dispatch(ctx, jobID); err != nil && !errors.Is(err, services.ErrAlreadyDispatched) {
				logger.Errorf("Failed to dispatch job %s: %v", jobID, err)
			}
		}(job.ID)
		return c.Status(fiber.StatusAccepted).JSON(types.Success(job))
	case "ABORT":
		job, err := h.jobService.Abort(c.Context(), owner(c), id)
		if err != nil {
			return jobError(c, err)
		}
		return c.JSON(types.Success(job))
	default:
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput("Phase must be RUN or ABORT"))
	}
}

// DestructionRequest is the request body for extending a destruction time
type DestructionRequest struct {
	DestructionTime time.Time `json:"destruction_time"`
}

// UpdateDestruction handles extending a job's destruction time
func (h *JobHandler) UpdateDestruction(c *fiber.Ctx) error {
	var req DestructionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput("Invalid request body"))
	}

	destruction, err := h.jobService.UpdateDestruction(c.Context(), owner(c), c.Params("id"), req.DestructionTime)
	if err != nil {
		return jobError(c, err)
	}
	return c.JSON(types.Success(map[string]interface{}{"destruction_time": destruction}))
}

// DurationRequest is the request body for changing the execution budget
type DurationRequest struct {
	ExecutionDuration int `json:"execution_duration"`
}

// UpdateExecutionDuration handles changing a job's advisory execution budget
func (h *JobHandler) UpdateExecutionDuration(c *fiber.Ctx) error {
	var req DurationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput("Invalid request body"))
	}

	duration, err := h.jobService.UpdateExecutionDuration(c.Context(), owner(c), c.Params("id"), req.ExecutionDuration)
	if err != nil {
		return jobError(c, err)
	}
	return c.JSON(types.Success(map[string]interface{}{"execution_duration": duration}))
}

// GetResults handles retrieving a completed job's results with
// retrievable URLs, signed on demand.
func (h *JobHandler) GetResults(c *fiber.Ctx) error {
	job, err := h.jobService.Get(c.Context(), owner(c), c.Params("id"))
	if err != nil {
		return jobError(c, err)
	}
	if job.Phase != models.PhaseCompleted {
		return c.Status(fiber.StatusNotFound).JSON(types.ErrNotFound("Job has no results"))
	}

	located, err := h.locator.LocateAll(c.Context(), job.Results)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrServer(err.Error()))
	}
	return c.JSON(types.Success(map[string]interface{}{"results": located}))
}

// DeleteJob handles deleting a job and its stored results
func (h *JobHandler) DeleteJob(c *fiber.Ctx) error {
	if err := h.jobService.Delete(c.Context(), owner(c), c.Params("id")); err != nil {
		return jobError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Health reports availability of the job store
func (h *JobHandler) Health(c *fiber.Ctx) error {
	if err := h.jobService.Availability(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(types.ErrServer("cannot query job database"))
	}
	return c.JSON(fiber.Map{"status": "healthy"})
}

func jobError(c *fiber.Ctx, err error) error {
	if errors.Is(err, repos.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(types.ErrNotFound("Job not found"))
	}
	return c.Status(fiber.StatusInternalServerError).JSON(types.ErrServer(err.Error()))
}
