package repos

import (
	"time"

	"github.com/orionsurvey/cutouts/internal/db/models"
)

func (s *JobRepositoryTestSuite) TestCreate() {
	job := s.createTestJob()
	s.NotEmpty(job.ID)
	s.Equal(models.PhasePending, job.Phase)
}

func (s *JobRepositoryTestSuite) TestGetByID() {
	original := s.createTestJob()

	found, err := s.repo.GetByID(s.ctx, original.ID)
	s.NoError(err)
	s.Equal(original.ID, found.ID)
	s.Equal(original.Owner, found.Owner)
	s.Equal(original.Parameters.DatasetIDs, found.Parameters.DatasetIDs)

	// Non-existent ID
	_, err = s.repo.GetByID(s.ctx, "does-not-exist")
	s.ErrorIs(err, ErrNotFound)
}

func (s *JobRepositoryTestSuite) TestGetByIDExpired() {
	job := s.createTestJob()

	// Push the destruction time into the past. Expired jobs are
	// invisible to reads even before the reaper removes them.
	err := s.db.Model(&models.Job{}).Where("id = ?", job.ID).
		Update(models.JobDestructionTimeField, time.Now().UTC().Add(-time.Minute)).Error
	s.Require().NoError(err)

	_, err = s.repo.GetByID(s.ctx, job.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *JobRepositoryTestSuite) TestGetForOwner() {
	job := s.createTestJobForOwner("alice")

	found, err := s.repo.GetForOwner(s.ctx, "alice", job.ID)
	s.NoError(err)
	s.Equal(job.ID, found.ID)

	// Another owner's job is indistinguishable from a missing one.
	_, err = s.repo.GetForOwner(s.ctx, "bob", job.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *JobRepositoryTestSuite) TestList() {
	first := s.createTestJobForOwner("alice")
	second := s.createTestJobForOwner("alice")
	s.createTestJobForOwner("bob")

	jobs, err := s.repo.List(s.ctx, "alice", nil)
	s.NoError(err)
	s.Len(jobs, 2)

	ids := []string{jobs[0].ID, jobs[1].ID}
	s.Contains(ids, first.ID)
	s.Contains(ids, second.ID)
}

func (s *JobRepositoryTestSuite) TestListPhaseFilter() {
	s.createTestJobForOwner("alice")
	queued := s.createTestJobForOwner("alice")
	s.advanceTo(queued, models.PhaseQueued)

	jobs, err := s.repo.List(s.ctx, "alice", &models.ListOptions{
		Phases: []models.Phase{models.PhaseQueued},
	})
	s.NoError(err)
	s.Require().Len(jobs, 1)
	s.Equal(queued.ID, jobs[0].ID)

	jobs, err = s.repo.List(s.ctx, "alice", &models.ListOptions{
		Phases: []models.Phase{models.PhasePending, models.PhaseQueued},
	})
	s.NoError(err)
	s.Len(jobs, 2)
}

func (s *JobRepositoryTestSuite) TestListAfterFilter() {
	job := s.createTestJob()

	past := job.CreatedAt.Add(-time.Hour)
	jobs, err := s.repo.List(s.ctx, job.Owner, &models.ListOptions{After: &past})
	s.NoError(err)
	s.Len(jobs, 1)

	future := job.CreatedAt.Add(time.Hour)
	jobs, err = s.repo.List(s.ctx, job.Owner, &models.ListOptions{After: &future})
	s.NoError(err)
	s.Empty(jobs)
}

func (s *JobRepositoryTestSuite) TestListLimit() {
	for i := 0; i < 3; i++ {
		s.createTestJobForOwner("alice")
	}

	jobs, err := s.repo.List(s.ctx, "alice", &models.ListOptions{Limit: 2})
	s.NoError(err)
	s.Len(jobs, 2)
}

func (s *JobRepositoryTestSuite) TestUpdatePhase() {
	job := s.createTestJob()

	updated, err := s.repo.UpdatePhase(s.ctx, job.ID, models.PhasePending, models.PhaseQueued, nil)
	s.NoError(err)
	s.Equal(models.PhaseQueued, updated.Phase)

	// Extra fields land with the phase in the same write.
	started := time.Now().UTC()
	updated, err = s.repo.UpdatePhase(s.ctx, job.ID, models.PhaseQueued, models.PhaseExecuting,
		map[string]interface{}{"started_at": started})
	s.NoError(err)
	s.Equal(models.PhaseExecuting, updated.Phase)
	s.Require().NotNil(updated.StartedAt)
	s.Equal(started.Truncate(time.Second), updated.StartedAt.UTC())
}

func (s *JobRepositoryTestSuite) TestUpdatePhaseConflict() {
	job := s.createTestJob()
	s.advanceTo(job, models.PhaseQueued)

	// The stored phase no longer matches the expectation, so the write
	// must not happen.
	_, err := s.repo.UpdatePhase(s.ctx, job.ID, models.PhasePending, models.PhaseQueued, nil)
	s.ErrorIs(err, ErrPhaseConflict)

	current, err := s.repo.GetByID(s.ctx, job.ID)
	s.NoError(err)
	s.Equal(models.PhaseQueued, current.Phase)
}

func (s *JobRepositoryTestSuite) TestUpdatePhaseConflictLeavesFieldsUntouched() {
	job := s.createTestJob()
	executing := s.advanceTo(job, models.PhaseExecuting)
	s.Require().NotNil(executing.StartedAt)

	// Losing the guard means no field changes at all, not a partial write.
	_, err := s.repo.UpdatePhase(s.ctx, job.ID, models.PhaseQueued, models.PhaseAborted,
		map[string]interface{}{"ended_at": time.Now().UTC()})
	s.ErrorIs(err, ErrPhaseConflict)

	current, err := s.repo.GetByID(s.ctx, job.ID)
	s.NoError(err)
	s.Equal(models.PhaseExecuting, current.Phase)
	s.Nil(current.EndedAt)
}

func (s *JobRepositoryTestSuite) TestUpdatePhaseInvalidTransition() {
	job := s.createTestJob()

	_, err := s.repo.UpdatePhase(s.ctx, job.ID, models.PhasePending, models.PhaseCompleted, nil)
	s.ErrorIs(err, ErrInvalidTransition)

	// Terminal phases have no outgoing transitions.
	completed := s.advanceTo(job, models.PhaseCompleted)
	_, err = s.repo.UpdatePhase(s.ctx, completed.ID, models.PhaseCompleted, models.PhaseAborted, nil)
	s.ErrorIs(err, ErrInvalidTransition)
}

func (s *JobRepositoryTestSuite) TestUpdatePhaseNotFound() {
	_, err := s.repo.UpdatePhase(s.ctx, "does-not-exist", models.PhasePending, models.PhaseQueued, nil)
	s.ErrorIs(err, ErrNotFound)
}

func (s *JobRepositoryTestSuite) TestUpdatePhaseTruncatesTimestamps() {
	job := s.createTestJob()

	precise := time.Date(2026, 3, 14, 15, 9, 26, 535897932, time.UTC)
	updated, err := s.repo.UpdatePhase(s.ctx, job.ID, models.PhasePending, models.PhaseAborted,
		map[string]interface{}{"ended_at": precise})
	s.NoError(err)
	s.Require().NotNil(updated.EndedAt)
	s.Equal(precise.Truncate(time.Second), updated.EndedAt.UTC())
}

func (s *JobRepositoryTestSuite) TestUpdateDestruction() {
	job := s.createTestJob()

	deadline := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	s.NoError(s.repo.UpdateDestruction(s.ctx, job.ID, deadline))

	current, err := s.repo.GetByID(s.ctx, job.ID)
	s.NoError(err)
	s.Equal(deadline, current.DestructionTime.UTC())

	s.ErrorIs(s.repo.UpdateDestruction(s.ctx, "does-not-exist", deadline), ErrNotFound)
}

func (s *JobRepositoryTestSuite) TestUpdateExecutionDuration() {
	job := s.createTestJob()

	s.NoError(s.repo.UpdateExecutionDuration(s.ctx, job.ID, 1200))

	current, err := s.repo.GetByID(s.ctx, job.ID)
	s.NoError(err)
	s.Equal(1200, current.ExecutionDuration)

	s.ErrorIs(s.repo.UpdateExecutionDuration(s.ctx, "does-not-exist", 1200), ErrNotFound)
}

func (s *JobRepositoryTestSuite) TestDelete() {
	job := s.createTestJob()

	s.NoError(s.repo.Delete(s.ctx, job.ID))

	_, err := s.repo.GetByID(s.ctx, job.ID)
	s.ErrorIs(err, ErrNotFound)

	// Deleting an already-deleted job is not an error.
	s.NoError(s.repo.Delete(s.ctx, job.ID))
}

func (s *JobRepositoryTestSuite) TestListExpired() {
	live := s.createTestJob()
	expired := s.createTestJob()

	err := s.db.Model(&models.Job{}).Where("id = ?", expired.ID).
		Update(models.JobDestructionTimeField, time.Now().UTC().Add(-time.Minute)).Error
	s.Require().NoError(err)

	jobs, err := s.repo.ListExpired(s.ctx, time.Now().UTC())
	s.NoError(err)
	s.Require().Len(jobs, 1)
	s.Equal(expired.ID, jobs[0].ID)
	s.NotEqual(live.ID, jobs[0].ID)
}

func (s *JobRepositoryTestSuite) TestListExecuting() {
	s.createTestJob()
	executing := s.createTestJob()
	s.advanceTo(executing, models.PhaseExecuting)

	// A zero execution budget means unlimited; those never show up.
	unlimited := s.createTestJob()
	s.advanceTo(unlimited, models.PhaseExecuting)
	err := s.db.Model(&models.Job{}).Where("id = ?", unlimited.ID).
		Update("execution_duration", 0).Error
	s.Require().NoError(err)

	jobs, err := s.repo.ListExecuting(s.ctx)
	s.NoError(err)
	s.Require().Len(jobs, 1)
	s.Equal(executing.ID, jobs[0].ID)
}

func (s *JobRepositoryTestSuite) TestAvailability() {
	s.NoError(s.repo.Availability(s.ctx))
}
