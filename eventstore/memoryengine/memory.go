// Package memoryengine implements eventstore.Store in process memory.
//
// It mirrors the postgresengine conflict semantics exactly - an append whose
// version is not currentMax+1 fails with eventstore.ErrVersionConflict - so
// command handlers and the projector can be exercised in tests and local
// development without a database. It is not durable.
package memoryengine

import (
	"context"
	"sync"

	"github.com/probelab/assesscore/eventstore"
)

type streamKey struct {
	aggregateID string
	tenantID    string
}

// EventStore is an in-memory eventstore.Store.
type EventStore struct {
	mu       sync.RWMutex
	log      []eventstore.StoredEvent
	streams  map[streamKey]int64
	eventIDs map[string]struct{}
}

// NewEventStore creates an empty in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		streams:  make(map[streamKey]int64),
		eventIDs: make(map[string]struct{}),
	}
}

// Append persists one event, enforcing version = currentMax+1 atomically.
func (es *EventStore) Append(_ context.Context, event eventstore.StoredEvent) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	key := streamKey{aggregateID: event.AggregateID, tenantID: event.TenantID}

	if _, seen := es.eventIDs[event.EventID]; seen {
		return eventstore.ErrVersionConflict
	}

	if event.Version != es.streams[key]+1 {
		return eventstore.ErrVersionConflict
	}

	event.GlobalSequence = uint64(len(es.log) + 1)
	es.log = append(es.log, event)
	es.streams[key] = event.Version
	es.eventIDs[event.EventID] = struct{}{}

	return nil
}

// Events returns the full ascending history of one aggregate instance.
func (es *EventStore) Events(_ context.Context, aggregateID string, tenantID string) (eventstore.StoredEvents, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	return es.collect(func(e eventstore.StoredEvent) bool {
		return e.AggregateID == aggregateID && e.TenantID == tenantID
	}, 0), nil
}

// EventsAfterVersion returns the events of one aggregate instance with a
// version strictly greater than afterVersion.
func (es *EventStore) EventsAfterVersion(
	_ context.Context,
	aggregateID string,
	tenantID string,
	afterVersion int64,
) (eventstore.StoredEvents, error) {

	es.mu.RLock()
	defer es.mu.RUnlock()

	return es.collect(func(e eventstore.StoredEvent) bool {
		return e.AggregateID == aggregateID && e.TenantID == tenantID && e.Version > afterVersion
	}, 0), nil
}

// EventsAfterSequence returns tenant-scoped events in global append order.
func (es *EventStore) EventsAfterSequence(
	_ context.Context,
	tenantID string,
	afterSequence uint64,
	limit int,
) (eventstore.StoredEvents, error) {

	es.mu.RLock()
	defer es.mu.RUnlock()

	return es.collect(func(e eventstore.StoredEvent) bool {
		return e.TenantID == tenantID && e.GlobalSequence > afterSequence
	}, limit), nil
}

// AllEventsAfterSequence is the platform-wide scan reserved for operator
// tooling and projection rebuilds.
func (es *EventStore) AllEventsAfterSequence(
	_ context.Context,
	afterSequence uint64,
	limit int,
) (eventstore.StoredEvents, error) {

	es.mu.RLock()
	defer es.mu.RUnlock()

	return es.collect(func(e eventstore.StoredEvent) bool {
		return e.GlobalSequence > afterSequence
	}, limit), nil
}

// collect walks the log in append order, which is also version order per
// stream and global-sequence order overall.
func (es *EventStore) collect(match func(eventstore.StoredEvent) bool, limit int) eventstore.StoredEvents {
	events := make(eventstore.StoredEvents, 0)

	for _, event := range es.log {
		if !match(event) {
			continue
		}

		events = append(events, event)

		if limit > 0 && len(events) == limit {
			break
		}
	}

	return events
}

// Interface guard.
var _ eventstore.Store = (*EventStore)(nil)
