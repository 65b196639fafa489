package services

import (
	"context"
	"errors"
	"time"

	"github.com/orionsurvey/cutouts/internal/db/models"
	"github.com/orionsurvey/cutouts/internal/db/repos"
	"github.com/orionsurvey/cutouts/internal/logger"
	"github.com/orionsurvey/cutouts/internal/objstore"
)

// DefaultReapInterval is how often the reaper sweeps the job store
const DefaultReapInterval = time.Hour

// Reaper periodically destroys jobs whose destruction time has passed
// and aborts jobs whose execution budget has been exceeded. Abortion of
// an overrun job is bookkeeping only; the computation backend cannot be
// forcibly stopped.
type Reaper struct {
	repo     *repos.JobRepository
	store    objstore.Store
	interval time.Duration
}

// NewReaper creates a reaper sweeping at the given interval
func NewReaper(repo *repos.JobRepository, store objstore.Store, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	return &Reaper{repo: repo, store: store, interval: interval}
}

// Run sweeps once immediately and then on every tick until ctx is
// cancelled.
func (r *Reaper) Run(ctx context.Context) {
	logger.Infof("Reaper started (interval=%s)", r.interval)
	r.Sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Reaper received shutdown signal, stopping")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep performs one destruction pass and one overrun pass. Failures
// on individual jobs are logged and do not stop the sweep.
func (r *Reaper) Sweep(ctx context.Context) {
	r.destroyExpired(ctx)
	r.abortOverruns(ctx)
}

func (r *Reaper) destroyExpired(ctx context.Context) {
	jobs, err := r.repo.ListExpired(ctx, time.Now().UTC())
	if err != nil {
		logger.Errorf("Reaper failed to list expired jobs: %v", err)
		return
	}
	for i := range jobs {
		job := &jobs[i]
		deleteJobResults(ctx, r.store, job)
		if err := r.repo.Delete(ctx, job.ID); err != nil {
			logger.Errorf("Reaper failed to delete job %s: %v", job.ID, err)
			continue
		}
		logger.InfoWithFields("Destroyed expired job", map[string]interface{}{
			"job_id": job.ID,
			"phase":  job.Phase,
		})
	}
}

func (r *Reaper) abortOverruns(ctx context.Context) {
	jobs, err := r.repo.ListExecuting(ctx)
	if err != nil {
		logger.Errorf("Reaper failed to list executing jobs: %v", err)
		return
	}
	now := time.Now().UTC()
	for i := range jobs {
		job := &jobs[i]
		if job.StartedAt == nil {
			continue
		}
		deadline := job.StartedAt.Add(time.Duration(job.ExecutionDuration) * time.Second)
		if now.Before(deadline) {
			continue
		}
		_, err := r.repo.UpdatePhase(ctx, job.ID, models.PhaseExecuting, models.PhaseAborted,
			map[string]interface{}{"ended_at": now})
		if errors.Is(err, repos.ErrPhaseConflict) || errors.Is(err, repos.ErrNotFound) {
			// The executor finished first; its terminal write wins.
			continue
		}
		if err != nil {
			logger.Errorf("Reaper failed to abort overrun job %s: %v", job.ID, err)
			continue
		}
		logger.WarnWithFields("Aborted job over its execution budget", map[string]interface{}{
			"job_id":   job.ID,
			"duration": job.ExecutionDuration,
		})
	}
}
