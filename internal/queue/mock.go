package queue

import (
	"context"
	"sync"
	"time"
)

// MockQueue is an in-memory Queue for tests. It preserves FIFO order
// and supports retraction like the Redis implementation.
type MockQueue struct {
	mu      sync.Mutex
	entries []string
	closed  bool
}

// NewMockQueue creates an empty in-memory queue
func NewMockQueue() *MockQueue {
	return &MockQueue{}
}

// Enqueue appends a work unit
func (q *MockQueue) Enqueue(_ context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, jobID)
	return nil
}

// Claim returns the oldest work unit, polling briefly like the blocking
// Redis claim. Returns ErrEmpty if nothing arrives in the window.
func (q *MockQueue) Claim(ctx context.Context) (string, error) {
	deadline := time.Now().Add(50 * time.Millisecond)
	for {
		q.mu.Lock()
		if len(q.entries) > 0 {
			jobID := q.entries[0]
			q.entries = q.entries[1:]
			q.mu.Unlock()
			return jobID, nil
		}
		q.mu.Unlock()

		if time.Now().After(deadline) {
			return "", ErrEmpty
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

// Retract removes all entries for the given job
func (q *MockQueue) Retract(_ context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e != jobID {
			kept = append(kept, e)
		}
	}
	q.entries = kept
	return nil
}

// Close marks the queue closed
func (q *MockQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// Len reports the number of queued entries, for test assertions
func (q *MockQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
