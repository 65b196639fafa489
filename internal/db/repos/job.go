// Package repos provides data access for job records
package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/orionsurvey/cutouts/internal/db/models"
)

// Sentinel errors for job store operations
var (
	// ErrNotFound indicates the job does not exist or has passed its destruction time
	ErrNotFound = errors.New("job not found")
	// ErrPhaseConflict indicates a guarded update lost the race: the
	// stored phase no longer matched the expected phase. Callers must
	// re-read and decide whether their action still applies.
	ErrPhaseConflict = errors.New("job phase conflict")
	// ErrInvalidTransition indicates the requested transition is not
	// permitted by the phase state machine.
	ErrInvalidTransition = errors.New("invalid phase transition")
)

const (
	// updateRetries bounds retries of the guarded update on transient database errors
	updateRetries = 3
	// updateBackoff is the delay between update retries
	updateBackoff = 100 * time.Millisecond
)

// JobRepository handles database operations for jobs
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new instance of JobRepository
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create creates a new job record in the database
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID retrieves a live job by ID. Jobs past their destruction time
// are never returned by any read path, even if the reaper has not yet
// removed them.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).
		Where("id = ? AND destruction_time > ?", id, time.Now().UTC()).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// GetForOwner retrieves a live job by ID, restricted to its owner
func (r *JobRepository) GetForOwner(ctx context.Context, owner, id string) (*models.Job, error) {
	job, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Owner != owner {
		return nil, ErrNotFound
	}
	return job, nil
}

// List returns the live jobs for an owner, newest first
func (r *JobRepository) List(ctx context.Context, owner string, opts *models.ListOptions) ([]models.Job, error) {
	var jobs []models.Job
	query := r.db.WithContext(ctx).
		Where("owner = ? AND destruction_time > ?", owner, time.Now().UTC())
	if opts != nil {
		if len(opts.Phases) > 0 {
			query = query.Where(models.JobPhaseField+" IN ?", opts.Phases)
		}
		if opts.After != nil {
			query = query.Where(models.JobCreatedAtField+" > ?", opts.After.UTC())
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit).Offset(opts.Offset)
		}
	}
	err := query.Order(models.JobCreatedAtField + " DESC").Find(&jobs).Error
	return jobs, err
}

// UpdatePhase performs the guarded phase transition. The update
// succeeds only if the stored phase still equals expected at the moment
// of the write; otherwise ErrPhaseConflict (or ErrNotFound if the row
// is gone) is returned and no fields are modified. Transient database
// errors are retried a bounded number of times with backoff.
func (r *JobRepository) UpdatePhase(ctx context.Context, id string, expected, next models.Phase, fields map[string]interface{}) (*models.Job, error) {
	if !expected.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, expected, next)
	}

	updates := map[string]interface{}{models.JobPhaseField: next}
	for k, v := range fields {
		if t, ok := v.(time.Time); ok {
			v = t.UTC().Truncate(time.Second)
		}
		updates[k] = v
	}

	var res *gorm.DB
	for attempt := 0; ; attempt++ {
		res = r.db.WithContext(ctx).Model(&models.Job{}).
			Where("id = ? AND phase = ?", id, expected).
			Updates(updates)
		if res.Error == nil || attempt >= updateRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(updateBackoff):
		}
	}
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update job phase: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Distinguish a lost race from a deleted job.
		var job models.Job
		err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to re-read job after conflict: %w", err)
		}
		return nil, fmt.Errorf("%w: expected %s, found %s", ErrPhaseConflict, expected, job.Phase)
	}

	var job models.Job
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, fmt.Errorf("failed to re-read job after update: %w", err)
	}
	return &job, nil
}

// UpdateDestruction updates the destruction deadline of a job
func (r *JobRepository) UpdateDestruction(ctx context.Context, id string, destruction time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Update(models.JobDestructionTimeField, destruction.UTC().Truncate(time.Second))
	if res.Error != nil {
		return fmt.Errorf("failed to update destruction time: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateExecutionDuration updates the advisory execution budget of a job
func (r *JobRepository) UpdateExecutionDuration(ctx context.Context, id string, seconds int) error {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Update("execution_duration", seconds)
	if res.Error != nil {
		return fmt.Errorf("failed to update execution duration: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a job record
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Job{}).Error
}

// ListExpired returns jobs whose destruction time has passed
func (r *JobRepository) ListExpired(ctx context.Context, before time.Time) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Where(models.JobDestructionTimeField+" <= ?", before.UTC()).
		Find(&jobs).Error
	return jobs, err
}

// ListExecuting returns jobs currently in the EXECUTING phase with a
// nonzero execution budget. Overrun detection happens in the caller;
// interval arithmetic in SQL is not portable across the backing engines.
func (r *JobRepository) ListExecuting(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Where("phase = ? AND execution_duration > 0", models.PhaseExecuting).
		Find(&jobs).Error
	return jobs, err
}

// Availability checks that the job database answers queries
func (r *JobRepository) Availability(ctx context.Context) error {
	var count int64
	return r.db.WithContext(ctx).Model(&models.Job{}).Limit(1).Count(&count).Error
}
