package domain

import (
	"time"
)

// Root is the embedded base of every aggregate. It tracks identity, the
// replayed version, and the buffer of uncommitted events.
type Root struct {
	id          string
	tenantID    string
	version     int64
	uncommitted Events
}

// ID returns the aggregate id, empty until the creation event is applied.
func (r *Root) ID() string {
	return r.id
}

// TenantID returns the tenant partition key.
func (r *Root) TenantID() string {
	return r.tenantID
}

// Version returns the version of the last applied event, 0 for a fresh
// aggregate that has no history yet.
func (r *Root) Version() int64 {
	return r.version
}

// UncommittedEvents returns the events produced by commands since the last
// MarkEventsCommitted, in the order they must be persisted.
func (r *Root) UncommittedEvents() Events {
	return r.uncommitted
}

// MarkEventsCommitted clears the uncommitted buffer. Callers must only invoke
// it after every buffered event has been durably appended.
func (r *Root) MarkEventsCommitted() {
	r.uncommitted = nil
}

func (r *Root) exists() bool {
	return r.version > 0
}

// aggregate is the internal contract between the Root helpers and the
// concrete aggregates.
type aggregate interface {
	root() *Root
	apply(event Event) error
}

// raise builds the next event for the aggregate, applies it, and buffers it
// as uncommitted. It is the only place a command is allowed to advance state.
func raise(
	a aggregate,
	aggregateID string,
	tenantID string,
	payload Payload,
	occurredAt time.Time,
	metadata Metadata,
) error {

	r := a.root()
	event := BuildEvent(aggregateID, tenantID, r.version+1, occurredAt, payload, metadata)

	if err := a.apply(event); err != nil {
		return err
	}

	r.id = aggregateID
	r.tenantID = tenantID
	r.version = event.Version
	r.uncommitted = append(r.uncommitted, event)

	return nil
}

// replay folds persisted history into the aggregate before any new command
// runs. Folding the same history always reproduces the same state.
func replay(a aggregate, history Events) error {
	r := a.root()

	for _, event := range history {
		if err := a.apply(event); err != nil {
			return err
		}

		r.id = event.AggregateID
		r.tenantID = event.TenantID
		r.version = event.Version
	}

	return nil
}
