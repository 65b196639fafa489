// Package objstore provides durable storage for cutout result
// artifacts. Results are written once by the executing worker and
// addressed by an s3:// location until signed for retrieval.
package objstore

import (
	"context"
	"errors"
	"time"
)

// Store operation errors
var (
	// ErrNotFound indicates the stored object does not exist
	ErrNotFound = errors.New("objstore: object not found")
)

// Store is the durable storage contract for result artifacts
type Store interface {
	// Put stores an artifact under the given key and returns its location
	Put(ctx context.Context, key string, data []byte, mimeType string) (string, error)
	// Delete removes a stored artifact by location. Deleting a missing
	// object is not an error; reaper sweeps tolerate already-removed
	// results.
	Delete(ctx context.Context, location string) error
	// Sign produces a time-limited URL for retrieving the artifact at
	// the given location
	Sign(ctx context.Context, location string, ttl time.Duration) (string, error)
}
