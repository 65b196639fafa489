// Package cutout defines the contracts for the external pieces of the
// cutout pipeline: the data-repository service that resolves dataset
// references and the computation backend that produces cutout images.
// The backend is synchronous and blocking from the executor's
// perspective and cannot be preempted mid-task.
package cutout

import (
	"context"
	"errors"
	"fmt"

	"github.com/orionsurvey/cutouts/internal/db/models"
)

// ErrDatasetNotFound indicates a dataset reference did not resolve.
// This is a user-facing error, not a fault.
var ErrDatasetNotFound = errors.New("dataset not found")

// UserError is a failure caused by the request itself: bad geometry,
// zero image overlap, an unresolvable dataset. User errors carry a
// code and message for the job owner and never a traceback.
type UserError struct {
	Code    models.ErrorCode
	Message string
}

func (e *UserError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsUserError unwraps err to a UserError if it is one
func AsUserError(err error) (*UserError, bool) {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// DatasetHandle is a resolved dataset reference: the opaque identifier
// plus the sky footprint of the source image, which the backend uses
// for clipping.
type DatasetHandle struct {
	Ref    string
	Bounds Bounds
}

// Artifact is a single cutout image produced by the backend
type Artifact struct {
	Data     []byte
	MimeType string
}

// Resolver resolves dataset references against the data-repository
// service.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (*DatasetHandle, error)
}

// Backend performs the cutout computation for one stencil against one
// resolved dataset. Stencils that partially overlap the image are
// clipped to the image bounds; stencils with zero overlap fail with a
// UserError. No pixel masking outside the stencil boundary is applied,
// only bounding-box clipping.
type Backend interface {
	Cut(ctx context.Context, handle *DatasetHandle, stencil models.Stencil) (*Artifact, error)
}
