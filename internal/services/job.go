package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orionsurvey/cutouts/internal/db/models"
	"github.com/orionsurvey/cutouts/internal/db/repos"
	"github.com/orionsurvey/cutouts/internal/logger"
	"github.com/orionsurvey/cutouts/internal/objstore"
)

// Job lifetime and duration policy defaults
const (
	// DefaultLifetime is the default time until a new job is destroyed
	DefaultLifetime = 7 * 24 * time.Hour
	// MaxLifetime caps how far out a destruction time may be pushed
	MaxLifetime = 30 * 24 * time.Hour
	// DefaultExecutionDuration is the default advisory execution budget in seconds
	DefaultExecutionDuration = 600
	// MaxExecutionDuration caps the advisory execution budget in seconds
	MaxExecutionDuration = 3600

	// abortRetries bounds how many times an abort re-reads and retries
	// after losing a guarded update race
	abortRetries = 3
)

// Job handles job lifecycle operations for the API frontend
type Job struct {
	repo  *repos.JobRepository
	store objstore.Store
}

// NewJobService creates a new instance of the job service
func NewJobService(repo *repos.JobRepository, store objstore.Store) *Job {
	return &Job{repo: repo, store: store}
}

// CreateRequest carries the caller-supplied fields for a new job
type CreateRequest struct {
	Owner             string
	RunID             string
	Parameters        models.Parameters
	ExecutionDuration int           // seconds; 0 uses the default
	Lifetime          time.Duration // 0 uses the default
}

// Create records a new job in the PENDING phase
func (s *Job) Create(ctx context.Context, req CreateRequest) (*models.Job, error) {
	duration := req.ExecutionDuration
	if duration == 0 {
		duration = DefaultExecutionDuration
	}
	if duration > MaxExecutionDuration {
		duration = MaxExecutionDuration
	}
	lifetime := req.Lifetime
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	if lifetime > MaxLifetime {
		lifetime = MaxLifetime
	}

	job := &models.Job{
		Owner:             req.Owner,
		RunID:             req.RunID,
		Phase:             models.PhasePending,
		Parameters:        req.Parameters,
		DestructionTime:   time.Now().UTC().Add(lifetime),
		ExecutionDuration: duration,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

// Get retrieves a job for its owner
func (s *Job) Get(ctx context.Context, owner, id string) (*models.Job, error) {
	return s.repo.GetForOwner(ctx, owner, id)
}

// List retrieves the owner's jobs, newest first
func (s *Job) List(ctx context.Context, owner string, opts *models.ListOptions) ([]models.Job, error) {
	return s.repo.List(ctx, owner, opts)
}

// Abort requests that a job stop. Aborting a PENDING or QUEUED job
// reliably prevents execution. For an EXECUTING job the transition only
// marks intent: the computation backend cannot be preempted, and if the
// executor's terminal write lands first the abort becomes a no-op. A
// job already in a terminal phase is returned unchanged.
func (s *Job) Abort(ctx context.Context, owner, id string) (*models.Job, error) {
	job, err := s.repo.GetForOwner(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt <= abortRetries; attempt++ {
		if job.Phase.IsTerminal() {
			return job, nil
		}
		updated, err := s.repo.UpdatePhase(ctx, id, job.Phase, models.PhaseAborted,
			map[string]interface{}{"ended_at": time.Now().UTC()})
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, repos.ErrPhaseConflict) {
			return nil, err
		}
		// Lost the race; re-read and decide whether abort still applies.
		job, err = s.repo.GetForOwner(ctx, owner, id)
		if err != nil {
			return nil, err
		}
	}
	logger.WarnWithFields("Abort gave up after repeated conflicts", map[string]interface{}{
		"job_id": id,
		"phase":  job.Phase,
	})
	return job, nil
}

// UpdateDestruction extends the destruction time of a job. The deadline
// may only move forward while it has not yet passed, and is capped at
// MaxLifetime from now. Returns the effective destruction time.
func (s *Job) UpdateDestruction(ctx context.Context, owner, id string, destruction time.Time) (time.Time, error) {
	job, err := s.repo.GetForOwner(ctx, owner, id)
	if err != nil {
		return time.Time{}, err
	}

	destruction = destruction.UTC().Truncate(time.Second)
	if !destruction.After(job.DestructionTime) {
		return job.DestructionTime, nil
	}
	if max := time.Now().UTC().Add(MaxLifetime).Truncate(time.Second); destruction.After(max) {
		destruction = max
	}
	if err := s.repo.UpdateDestruction(ctx, id, destruction); err != nil {
		return time.Time{}, err
	}
	return destruction, nil
}

// UpdateExecutionDuration changes the advisory execution budget,
// clamped to the policy maximum. Returns the effective duration.
func (s *Job) UpdateExecutionDuration(ctx context.Context, owner, id string, seconds int) (int, error) {
	job, err := s.repo.GetForOwner(ctx, owner, id)
	if err != nil {
		return 0, err
	}
	if seconds < 0 {
		return job.ExecutionDuration, nil
	}
	if seconds > MaxExecutionDuration {
		seconds = MaxExecutionDuration
	}
	if seconds == job.ExecutionDuration {
		return seconds, nil
	}
	if err := s.repo.UpdateExecutionDuration(ctx, id, seconds); err != nil {
		return 0, err
	}
	return seconds, nil
}

// Delete removes a job and its stored results on the owner's request
func (s *Job) Delete(ctx context.Context, owner, id string) error {
	job, err := s.repo.GetForOwner(ctx, owner, id)
	if err != nil {
		return err
	}
	deleteJobResults(ctx, s.store, job)
	return s.repo.Delete(ctx, id)
}

// Availability checks that the job store answers queries
func (s *Job) Availability(ctx context.Context) error {
	return s.repo.Availability(ctx)
}

// deleteJobResults removes a job's stored artifacts, tolerating results
// that were already removed.
func deleteJobResults(ctx context.Context, store objstore.Store, job *models.Job) {
	for _, result := range job.Results {
		if err := store.Delete(ctx, result.URL); err != nil && !errors.Is(err, objstore.ErrNotFound) {
			logger.WarnWithFields("Failed to delete result artifact", map[string]interface{}{
				"job_id":   job.ID,
				"location": result.URL,
				"error":    err.Error(),
			})
		}
	}
}
