package cutout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/orionsurvey/cutouts/internal/db/models"
)

// HTTPBackend drives the cutout computation service over HTTP. The
// service applies the edge policy itself: partial overlaps are clipped
// to the image bounds, zero overlap is rejected with a user error
// payload.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

// NewHTTPBackend creates a backend client for the given compute
// service URL. No request timeout is set on the client; cutouts can
// run long and cancellation is advisory only.
func NewHTTPBackend(baseURL string) *HTTPBackend {
	return &HTTPBackend{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

type cutRequest struct {
	Dataset string         `json:"dataset"`
	Bounds  Bounds         `json:"bounds"`
	Stencil models.Stencil `json:"stencil"`
}

type cutError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Cut performs one cutout computation, blocking until the service
// responds.
func (b *HTTPBackend) Cut(ctx context.Context, handle *DatasetHandle, stencil models.Stencil) (*Artifact, error) {
	body, err := json.Marshal(cutRequest{
		Dataset: handle.Ref,
		Bounds:  handle.Bounds,
		Stencil: stencil,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode cutout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/cutout", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build cutout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("compute service unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var ce cutError
		if err := json.NewDecoder(resp.Body).Decode(&ce); err != nil || ce.Message == "" {
			return nil, fmt.Errorf("compute service rejected request with status %d", resp.StatusCode)
		}
		code := models.ErrorCode(ce.Code)
		if code == "" {
			code = models.ErrorCodeUsageError
		}
		return nil, &UserError{Code: code, Message: ce.Message}
	default:
		return nil, fmt.Errorf("compute service returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read cutout artifact: %w", err)
	}
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/fits"
	}
	return &Artifact{Data: data, MimeType: mimeType}, nil
}

var _ Backend = (*HTTPBackend)(nil)
