package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/orionsurvey/cutouts/internal/cutout"
	"github.com/orionsurvey/cutouts/internal/db/models"
	"github.com/orionsurvey/cutouts/internal/db/repos"
	"github.com/orionsurvey/cutouts/internal/logger"
	"github.com/orionsurvey/cutouts/internal/objstore"
	"github.com/orionsurvey/cutouts/internal/queue"
)

const (
	// DefaultShutdownGrace is how long a stopping worker waits for
	// in-flight executions to finish naturally
	DefaultShutdownGrace = 30 * time.Second
	// claimBackoff is the delay after a queue error before claiming again
	claimBackoff = time.Second
)

// ExecutorOptions configures a worker process
type ExecutorOptions struct {
	// Tasks is the number of jobs this process may execute
	// concurrently. It defaults to 1: the computation backend is not
	// assumed safe to share within a process, and scaling is achieved
	// by running more worker processes.
	Tasks int
	// ShutdownGrace bounds how long shutdown waits for in-flight jobs
	ShutdownGrace time.Duration
}

// Executor is the long-lived worker loop: it claims queued work units,
// re-validates the job, drives the cutout backend, and records results
// or errors through guarded phase transitions.
type Executor struct {
	repo     *repos.JobRepository
	q        queue.Queue
	resolver cutout.Resolver
	backend  cutout.Backend
	store    objstore.Store
	reporter Reporter
	tasks    int
	grace    time.Duration
}

// NewExecutor creates a worker executor
func NewExecutor(repo *repos.JobRepository, q queue.Queue, resolver cutout.Resolver, backend cutout.Backend, store objstore.Store, reporter Reporter, opts ExecutorOptions) *Executor {
	tasks := opts.Tasks
	if tasks <= 0 {
		tasks = 1
	}
	grace := opts.ShutdownGrace
	if grace <= 0 {
		grace = DefaultShutdownGrace
	}
	if reporter == nil {
		reporter = &NopReporter{}
	}
	return &Executor{
		repo:     repo,
		q:        q,
		resolver: resolver,
		backend:  backend,
		store:    store,
		reporter: reporter,
		tasks:    tasks,
		grace:    grace,
	}
}

// Run claims and executes work units until ctx is cancelled, then
// allows in-flight executions the shutdown grace period to finish.
// Jobs still executing after the grace period are left in EXECUTING
// for operational tooling to reconcile.
func (e *Executor) Run(ctx context.Context) {
	logger.Infof("Worker started (tasks=%d)", e.tasks)

	sem := make(chan struct{}, e.tasks)
	var wg sync.WaitGroup

claim:
	for {
		select {
		case <-ctx.Done():
			break claim
		default:
		}

		jobID, err := e.q.Claim(ctx)
		if errors.Is(err, queue.ErrEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				break claim
			}
			logger.Errorf("Worker error claiming work: %v", err)
			time.Sleep(claimBackoff)
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()
			// Executions run to completion even while shutting down;
			// the grace period below bounds how long that is honored.
			e.Process(context.WithoutCancel(ctx), id)
		}(jobID)
	}

	logger.Info("Worker received shutdown signal, draining in-flight jobs")
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("Worker drained all in-flight jobs")
	case <-time.After(e.grace):
		logger.Warn("Shutdown grace period elapsed, leaving remaining jobs in EXECUTING")
	}
}

// Process handles a single claimed work unit. Duplicate or stale units
// are discarded without error: the job record, not the queue entry, is
// the ground truth.
func (e *Executor) Process(ctx context.Context, jobID string) {
	job, err := e.repo.GetByID(ctx, jobID)
	if errors.Is(err, repos.ErrNotFound) {
		logger.Debugf("Discarding work unit for unknown or expired job %s", jobID)
		return
	}
	if err != nil {
		logger.Errorf("Failed to read job %s for claimed work unit: %v", jobID, err)
		return
	}
	if job.Phase != models.PhaseQueued {
		logger.DebugWithFields("Discarding stale work unit", map[string]interface{}{
			"job_id": jobID,
			"phase":  job.Phase,
		})
		return
	}

	job, err = e.repo.UpdatePhase(ctx, jobID, models.PhaseQueued, models.PhaseExecuting,
		map[string]interface{}{"started_at": time.Now().UTC()})
	if err != nil {
		// Another worker claimed it first or the owner aborted it.
		if errors.Is(err, repos.ErrPhaseConflict) || errors.Is(err, repos.ErrNotFound) {
			logger.Debugf("Discarding work unit for job %s: %v", jobID, err)
			return
		}
		logger.Errorf("Failed to mark job %s executing: %v", jobID, err)
		return
	}

	logger.InfoWithFields("Executing job", map[string]interface{}{
		"job_id": jobID,
		"owner":  job.Owner,
	})

	results, err := e.execute(ctx, job)
	if err != nil {
		e.recordFailure(ctx, job, err)
		return
	}

	_, err = e.repo.UpdatePhase(ctx, jobID, models.PhaseExecuting, models.PhaseCompleted,
		map[string]interface{}{
			"results":  results,
			"ended_at": time.Now().UTC(),
		})
	if errors.Is(err, repos.ErrPhaseConflict) || errors.Is(err, repos.ErrNotFound) {
		// The job was aborted or destroyed while we were computing. The
		// loser of the race takes no further terminal action; any
		// orphaned artifacts are collected at destruction time.
		logger.WarnWithFields("Job reached a terminal state before completion could be recorded", map[string]interface{}{
			"job_id": jobID,
			"error":  err.Error(),
		})
		return
	}
	if err != nil {
		logger.Errorf("Failed to record completion for job %s: %v", jobID, err)
		return
	}
	logger.InfoWithFields("Job completed", map[string]interface{}{
		"job_id":  jobID,
		"results": len(results),
	})
}

// execute resolves the dataset, runs the backend for each stencil, and
// stores the resulting artifacts. Panics in the backend are converted
// to errors so they follow the normal failure path.
func (e *Executor) execute(ctx context.Context, job *models.Job) (results models.Results, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during cutout execution: %v\n%s", r, debug.Stack())
		}
	}()

	handle, err := e.resolver.Resolve(ctx, job.Parameters.DatasetIDs[0])
	if err != nil {
		return nil, err
	}

	for i, stencil := range job.Parameters.Stencils {
		artifact, err := e.backend.Cut(ctx, handle, stencil)
		if err != nil {
			return nil, err
		}

		resultID := "cutout"
		if len(job.Parameters.Stencils) > 1 {
			resultID = fmt.Sprintf("cutout-%d", i+1)
		}
		key := fmt.Sprintf("%s/%s.fits", job.ID, resultID)
		location, err := e.store.Put(ctx, key, artifact.Data, artifact.MimeType)
		if err != nil {
			return nil, fmt.Errorf("failed to store result artifact: %w", err)
		}
		results = append(results, models.Result{
			ID:       resultID,
			URL:      location,
			Size:     int64(len(artifact.Data)),
			MimeType: artifact.MimeType,
		})
	}
	return results, nil
}

// recordFailure classifies the error and performs the guarded
// EXECUTING -> ERROR transition. User errors carry only a code and
// message. Everything else is treated as fatal: the executor has no
// reliable signal to tell retryable failures from permanent ones, so
// unknown failures are never assumed transient. Those get a traceback
// in the error detail and a notification to the failure channel.
func (e *Executor) recordFailure(ctx context.Context, job *models.Job, cause error) {
	var jobErr *models.JobError
	switch {
	case errors.Is(cause, cutout.ErrDatasetNotFound):
		jobErr = &models.JobError{
			Code:    models.ErrorCodeUsageError,
			Message: fmt.Sprintf("dataset not found: %s", job.Parameters.DatasetIDs[0]),
		}
	default:
		if ue, ok := cutout.AsUserError(cause); ok {
			jobErr = &models.JobError{Code: ue.Code, Message: ue.Message}
			break
		}
		jobErr = &models.JobError{
			Code:    models.ErrorCodeError,
			Message: "cutout processing failed",
			Detail:  fmt.Sprintf("%v\n%s", cause, debug.Stack()),
		}
		e.reporter.Notify(
			fmt.Sprintf("cutout job %s failed unexpectedly", job.ID),
			jobErr.Detail,
		)
	}

	_, err := e.repo.UpdatePhase(ctx, job.ID, models.PhaseExecuting, models.PhaseError,
		map[string]interface{}{
			"error":    jobErr,
			"ended_at": time.Now().UTC(),
		})
	if errors.Is(err, repos.ErrPhaseConflict) || errors.Is(err, repos.ErrNotFound) {
		logger.WarnWithFields("Job reached a terminal state before failure could be recorded", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
		return
	}
	if err != nil {
		logger.Errorf("Failed to record error for job %s: %v", job.ID, err)
		return
	}
	logger.InfoWithFields("Job failed", map[string]interface{}{
		"job_id": job.ID,
		"code":   jobErr.Code,
	})
}
