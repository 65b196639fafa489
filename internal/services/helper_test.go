package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/orionsurvey/cutouts/internal/cutout"
	"github.com/orionsurvey/cutouts/internal/db/models"
	"github.com/orionsurvey/cutouts/internal/db/repos"
	"github.com/orionsurvey/cutouts/internal/objstore"
	"github.com/orionsurvey/cutouts/internal/queue"
)

// testEnv wires a service test harness on an in-memory database with
// mock collaborators.
type testEnv struct {
	ctx      context.Context
	repo     *repos.JobRepository
	q        *queue.MockQueue
	store    *objstore.MockStore
	resolver *cutout.MockResolver
	backend  *cutout.MockBackend
	reporter *MockReporter
}

// testImageBounds is the footprint of every dataset registered by newTestEnv
var testImageBounds = cutout.Bounds{RAMin: 148.0, RAMax: 150.0, DecMin: 68.0, DecMax: 70.0}

const testDataset = "hsc/visit/903332/12"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	// A per-test shared-cache name keeps connections from the pool on
	// the same in-memory database without leaking state across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_json=1",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to create in-memory database")
	require.NoError(t, db.AutoMigrate(&models.Job{}, &models.SchemaInfo{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	resolver := cutout.NewMockResolver()
	resolver.Register(testDataset, testImageBounds)

	return &testEnv{
		ctx:      context.Background(),
		repo:     repos.NewJobRepository(db),
		q:        queue.NewMockQueue(),
		store:    objstore.NewMockStore("test-bucket"),
		resolver: resolver,
		backend:  cutout.NewMockBackend(),
		reporter: &MockReporter{},
	}
}

func (e *testEnv) executor(t *testing.T) *Executor {
	t.Helper()
	return NewExecutor(e.repo, e.q, e.resolver, e.backend, e.store, e.reporter, ExecutorOptions{})
}

func (e *testEnv) createJob(t *testing.T, owner string) *models.Job {
	t.Helper()
	return e.createJobWithStencil(t, owner, models.Stencil{
		Type:   models.StencilCircle,
		Center: &models.SkyPoint{RA: 149.0, Dec: 69.0},
		Radius: 0.5,
	})
}

func (e *testEnv) createJobWithStencil(t *testing.T, owner string, stencil models.Stencil) *models.Job {
	t.Helper()
	job := &models.Job{
		Owner: owner,
		Parameters: models.Parameters{
			DatasetIDs: []string{testDataset},
			Stencils:   []models.Stencil{stencil},
		},
		DestructionTime:   time.Now().UTC().Add(24 * time.Hour),
		ExecutionDuration: 600,
	}
	require.NoError(t, e.repo.Create(e.ctx, job))
	return job
}

// toQueued dispatches a PENDING job the way the API frontend would
func (e *testEnv) toQueued(t *testing.T, job *models.Job) {
	t.Helper()
	require.NoError(t, NewDispatcher(e.repo, e.q).Dispatch(e.ctx, job.ID))
}
