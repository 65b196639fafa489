package cutout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/orionsurvey/cutouts/internal/db/models"
)

// MockResolver is an in-memory Resolver for tests, backed by a
// registry of dataset footprints.
type MockResolver struct {
	mu       sync.Mutex
	datasets map[string]Bounds
}

// NewMockResolver creates a resolver with no registered datasets
func NewMockResolver() *MockResolver {
	return &MockResolver{datasets: make(map[string]Bounds)}
}

// Register adds a dataset with the given sky footprint
func (r *MockResolver) Register(ref string, bounds Bounds) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.datasets[ref] = bounds
}

// Resolve looks up a registered dataset
func (r *MockResolver) Resolve(_ context.Context, ref string) (*DatasetHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bounds, ok := r.datasets[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, ref)
	}
	return &DatasetHandle{Ref: ref, Bounds: bounds}, nil
}

// MockBackend is an in-memory Backend for tests. It applies the real
// edge policy: stencils partially overlapping the image are clipped to
// the image bounds, stencils with zero overlap are a user error. The
// artifact payload records the clipped region as JSON in place of
// image data.
type MockBackend struct {
	mu  sync.Mutex
	err error
}

// NewMockBackend creates a backend that succeeds
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// FailWith makes every subsequent Cut call return err
func (b *MockBackend) FailWith(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

// Cut applies bounding-box clipping and produces a synthetic artifact
func (b *MockBackend) Cut(_ context.Context, handle *DatasetHandle, stencil models.Stencil) (*Artifact, error) {
	b.mu.Lock()
	injected := b.err
	b.mu.Unlock()
	if injected != nil {
		return nil, injected
	}

	clipped, ok := StencilBounds(stencil).Intersect(handle.Bounds)
	if !ok {
		return nil, &UserError{
			Code:    models.ErrorCodeUsageError,
			Message: "no overlap between cutout and image",
		}
	}

	payload, err := json.Marshal(map[string]interface{}{
		"dataset": handle.Ref,
		"stencil": stencil.Type,
		"clipped": clipped,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode artifact: %w", err)
	}
	return &Artifact{Data: payload, MimeType: "application/fits"}, nil
}
