package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/orionsurvey/cutouts/internal/db/models"
	"github.com/orionsurvey/cutouts/internal/objstore"
)

// DefaultURLLifetime is how long signed result URLs remain valid
const DefaultURLLifetime = 15 * time.Minute

// Locator translates stored result locations into URLs a client can
// retrieve. Locations that are already externally usable pass through
// unchanged; s3 locations are signed on demand so that credential or
// policy changes take effect immediately.
type Locator struct {
	store objstore.Store
	ttl   time.Duration
}

// NewLocator creates a locator signing against the given store
func NewLocator(store objstore.Store, ttl time.Duration) *Locator {
	if ttl <= 0 {
		ttl = DefaultURLLifetime
	}
	return &Locator{store: store, ttl: ttl}
}

// Locate returns a retrievable URL for a single result
func (l *Locator) Locate(ctx context.Context, result models.Result) (string, error) {
	if strings.HasPrefix(result.URL, "http://") || strings.HasPrefix(result.URL, "https://") {
		return result.URL, nil
	}
	if strings.HasPrefix(result.URL, "s3://") {
		return l.store.Sign(ctx, result.URL, l.ttl)
	}
	return "", fmt.Errorf("unsupported result location: %s", result.URL)
}

// LocateAll returns retrievable URLs for all results of a job,
// preserving result order.
func (l *Locator) LocateAll(ctx context.Context, results models.Results) (models.Results, error) {
	located := make(models.Results, 0, len(results))
	for _, r := range results {
		url, err := l.Locate(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("failed to locate result %s: %w", r.ID, err)
		}
		r.URL = url
		located = append(located, r)
	}
	return located, nil
}
