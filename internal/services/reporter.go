package services

import (
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/orionsurvey/cutouts/internal/logger"
)

// Reporter forwards unexpected failures to an operational notification
// channel. Notification is fire-and-forget: a failure to notify must
// never affect the job outcome.
type Reporter interface {
	Notify(summary, detail string)
}

// SentryReporter reports failures to Sentry
type SentryReporter struct{}

// NewSentryReporter initializes the Sentry client. An empty DSN
// disables reporting without error so the executor can run without an
// operational channel configured.
func NewSentryReporter(dsn, environment string) (*SentryReporter, error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		AttachStacktrace: true,
		Environment:      environment,
	})
	if err != nil {
		return nil, err
	}
	return &SentryReporter{}, nil
}

// Notify sends the failure to Sentry. Errors are logged and dropped.
func (r *SentryReporter) Notify(summary, detail string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetExtra("detail", detail)
		sentry.CaptureMessage(summary)
	})
	if !sentry.Flush(2 * time.Second) {
		logger.Warnf("Failure notification not flushed: %s", summary)
	}
}

// NopReporter discards all notifications
type NopReporter struct{}

// Notify does nothing
func (r *NopReporter) Notify(_, _ string) {}

// MockReporter records notifications for test assertions
type MockReporter struct {
	mu        sync.Mutex
	Summaries []string
	Details   []string
}

// Notify records the notification
func (r *MockReporter) Notify(summary, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Summaries = append(r.Summaries, summary)
	r.Details = append(r.Details, detail)
}

// Count reports how many notifications were recorded
func (r *MockReporter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Summaries)
}
