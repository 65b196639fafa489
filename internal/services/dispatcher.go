package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/orionsurvey/cutouts/internal/db/models"
	"github.com/orionsurvey/cutouts/internal/db/repos"
	"github.com/orionsurvey/cutouts/internal/logger"
	"github.com/orionsurvey/cutouts/internal/queue"
)

// ErrAlreadyDispatched indicates the job has already left the PENDING
// phase and cannot be dispatched again.
var ErrAlreadyDispatched = errors.New("job already dispatched")

// Dispatcher schedules accepted jobs for execution: it enqueues a work
// unit carrying only the job ID, then performs the guarded
// PENDING -> QUEUED transition. Callers on a request path should invoke
// Dispatch from a goroutine; both steps are quick but neither belongs
// on the response path.
type Dispatcher struct {
	repo *repos.JobRepository
	q    queue.Queue
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(repo *repos.JobRepository, q queue.Queue) *Dispatcher {
	return &Dispatcher{repo: repo, q: q}
}

// Dispatch enqueues the job and marks it QUEUED. If the phase update
// loses to a concurrent transition (e.g. an abort), the now-orphaned
// queue entry is retracted best-effort; workers re-validate phase
// before executing, so an un-retracted entry is harmless.
func (d *Dispatcher) Dispatch(ctx context.Context, jobID string) error {
	job, err := d.repo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Phase != models.PhasePending {
		return fmt.Errorf("%w: job %s is %s", ErrAlreadyDispatched, jobID, job.Phase)
	}

	if err := d.q.Enqueue(ctx, jobID); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", jobID, err)
	}

	if _, err := d.repo.UpdatePhase(ctx, jobID, models.PhasePending, models.PhaseQueued, nil); err != nil {
		if errors.Is(err, repos.ErrPhaseConflict) || errors.Is(err, repos.ErrNotFound) {
			if rerr := d.q.Retract(ctx, jobID); rerr != nil {
				logger.WarnWithFields("Failed to retract orphaned queue entry", map[string]interface{}{
					"job_id": jobID,
					"error":  rerr.Error(),
				})
			}
			return fmt.Errorf("%w: job %s", ErrAlreadyDispatched, jobID)
		}
		return err
	}

	logger.InfoWithFields("Job dispatched", map[string]interface{}{"job_id": jobID})
	return nil
}
