package eventstore

import (
	"context"
	"errors"
)

var (
	// ErrVersionConflict is returned by Append when the event's version is not
	// exactly one above the current maximum version of its aggregate stream.
	// Command handlers should reload the aggregate and re-apply the command.
	ErrVersionConflict = errors.New("version conflict, event was not appended")

	// ErrNilDatabaseConnection is returned when a nil database handle is supplied.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyEventsTableName is returned when an empty events table name is supplied.
	ErrEmptyEventsTableName = errors.New("empty events table name supplied")

	// ErrBuildingQueryFailed is returned when SQL query construction fails.
	ErrBuildingQueryFailed = errors.New("building query failed")

	// ErrQueryingEventsFailed is returned when reading events fails.
	ErrQueryingEventsFailed = errors.New("querying events failed")

	// ErrAppendingEventFailed is returned when the append execution fails.
	ErrAppendingEventFailed = errors.New("appending event failed")

	// ErrScanningDBRowFailed is returned when scanning a database row fails.
	ErrScanningDBRowFailed = errors.New("scanning database row failed")

	// ErrBuildingStoredEventFailed is returned when a database row does not
	// yield a valid StoredEvent.
	ErrBuildingStoredEventFailed = errors.New("building stored event from database row failed")
)

// Store is the contract the command handlers and the projector depend on.
//
// All reads return events ordered ascending; per-aggregate reads order by
// version, sequence reads by global sequence. Only AllEventsAfterSequence
// crosses tenant boundaries - it exists for operator tooling and projection
// rebuilds, never for request-path queries.
type Store interface {
	// Append persists one event. It must fail atomically with
	// ErrVersionConflict when event.Version is not currentMax+1 for the
	// (AggregateID, TenantID) stream.
	Append(ctx context.Context, event StoredEvent) error

	// Events returns the full history of one aggregate instance for replay.
	Events(ctx context.Context, aggregateID string, tenantID string) (StoredEvents, error)

	// EventsAfterVersion returns the events of one aggregate instance with a
	// version strictly greater than afterVersion, for incremental catch-up.
	EventsAfterVersion(ctx context.Context, aggregateID string, tenantID string, afterVersion int64) (StoredEvents, error)

	// EventsAfterSequence returns tenant-scoped events with a global sequence
	// strictly greater than afterSequence, up to limit (0 means no limit).
	EventsAfterSequence(ctx context.Context, tenantID string, afterSequence uint64, limit int) (StoredEvents, error)

	// AllEventsAfterSequence is the platform-wide scan reserved for operator
	// tooling. Same ordering and limit semantics as EventsAfterSequence.
	AllEventsAfterSequence(ctx context.Context, afterSequence uint64, limit int) (StoredEvents, error)
}
