package cutout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPResolver resolves dataset references against the data-repository
// service over its REST API.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
}

// NewHTTPResolver creates a resolver for the given data-repository URL
func NewHTTPResolver(baseURL string) *HTTPResolver {
	return &HTTPResolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Resolve fetches the dataset handle for a reference. A 404 from the
// repository is a user-facing dataset-not-found error, not a fault.
func (r *HTTPResolver) Resolve(ctx context.Context, ref string) (*DatasetHandle, error) {
	endpoint := fmt.Sprintf("%s/datasets/%s", r.baseURL, url.PathEscape(ref))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build dataset request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("data repository unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, ref)
	default:
		return nil, fmt.Errorf("data repository returned status %d for %s", resp.StatusCode, ref)
	}

	var handle DatasetHandle
	if err := json.NewDecoder(resp.Body).Decode(&handle); err != nil {
		return nil, fmt.Errorf("failed to decode dataset handle: %w", err)
	}
	if handle.Ref == "" {
		handle.Ref = ref
	}
	return &handle, nil
}
