// Package events publishes domain events for UI consumers. Delivery is
// fire-and-forget, at most once: publish failures are logged and swallowed,
// never surfaced to the operation that triggered them.
package events

import "context"

// Event types on the produced surface.
const (
	DatasetCreated  = "dataset.created"
	DatasetUpdated  = "dataset.updated"
	DatasetProgress = "dataset.progress"
	DatasetDeleted  = "dataset.deleted"

	FineTuneJobCreated  = "fine_tune_job.created"
	FineTuneJobUpdated  = "fine_tune_job.updated"
	FineTuneJobProgress = "fine_tune_job.progress"
	FineTuneJobDeleted  = "fine_tune_job.deleted"
)

// Publisher broadcasts a domain event. Implementations must not return
// delivery failures to the caller.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any)
}

// Nop discards all events. Used in tests and when Redis is unavailable.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) {}
