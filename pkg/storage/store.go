package storage

import (
	"github.com/cuemby/dispatch/pkg/events"
)

// Store defines the interface for durable audit-event storage.
//
// The scheduler's own state (waitlist, registry, node loads) is never
// persisted here — per design, a restart rebuilds it from configuration.
// Store exists only so operators can retrieve a job's event history after
// the fact, including after the events have scrolled out of any in-memory
// subscriber buffer.
type Store interface {
	// AppendEvent durably records ev under jobname.
	AppendEvent(jobname string, ev *events.Event) error

	// ListEvents returns all recorded events for jobname, oldest first.
	ListEvents(jobname string) ([]*events.Event, error)

	// DropJob deletes all recorded events for jobname. Used by clean_job.
	DropJob(jobname string) error

	// Close releases the underlying database.
	Close() error
}
