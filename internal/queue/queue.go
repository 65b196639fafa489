// Package queue provides the distributed work queue used to hand jobs
// from the API frontend to the worker pool. Entries carry only the job
// identifier; workers re-read the job record before acting so that
// stale or duplicate entries are harmless.
package queue

import (
	"context"
	"errors"
)

// Queue operation errors
var (
	// ErrEmpty indicates no work unit was available within the claim window
	ErrEmpty = errors.New("queue: no work available")
)

// Queue is the append/claim work queue contract. Delivery is
// at-least-once; consumers must tolerate duplicate claims.
type Queue interface {
	// Enqueue appends a work unit referencing the given job
	Enqueue(ctx context.Context, jobID string) error
	// Claim removes and returns one work unit, blocking up to the
	// implementation's claim window. Returns ErrEmpty when no unit
	// became available.
	Claim(ctx context.Context) (string, error)
	// Retract best-effort removes a not-yet-claimed work unit for the
	// given job. Missing entries are not an error.
	Retract(ctx context.Context, jobID string) error
	// Close releases the queue connection
	Close() error
}
