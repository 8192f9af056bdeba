package memoryengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/assesscore/eventstore"
	"github.com/probelab/assesscore/eventstore/memoryengine"
)

func Test_MemoryEventStore_Append_AssignsMonotonicGlobalSequence(t *testing.T) {
	// arrange
	es := memoryengine.NewEventStore()
	ctx := context.Background()

	// act
	require.NoError(t, es.Append(ctx, givenStoredEvent(t, "agg-1", "tenant-1", 1)))
	require.NoError(t, es.Append(ctx, givenStoredEvent(t, "agg-2", "tenant-1", 1)))
	require.NoError(t, es.Append(ctx, givenStoredEvent(t, "agg-1", "tenant-1", 2)))

	// assert
	events, err := es.AllEventsAfterSequence(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, uint64(1), events[0].GlobalSequence)
	assert.Equal(t, uint64(2), events[1].GlobalSequence)
	assert.Equal(t, uint64(3), events[2].GlobalSequence)
}

func Test_MemoryEventStore_Append_RejectsVersionGap(t *testing.T) {
	// arrange
	es := memoryengine.NewEventStore()
	ctx := context.Background()
	require.NoError(t, es.Append(ctx, givenStoredEvent(t, "agg-1", "tenant-1", 1)))

	// act
	err := es.Append(ctx, givenStoredEvent(t, "agg-1", "tenant-1", 3))

	// assert
	assert.ErrorIs(t, err, eventstore.ErrVersionConflict)
}

func Test_MemoryEventStore_Append_RejectsConcurrentWriterAtSameVersion(t *testing.T) {
	// arrange
	es := memoryengine.NewEventStore()
	ctx := context.Background()
	require.NoError(t, es.Append(ctx, givenStoredEvent(t, "agg-1", "tenant-1", 1)))
	require.NoError(t, es.Append(ctx, givenStoredEvent(t, "agg-1", "tenant-1", 2)))

	// act
	err := es.Append(ctx, givenStoredEvent(t, "agg-1", "tenant-1", 2))

	// assert
	assert.ErrorIs(t, err, eventstore.ErrVersionConflict)
}

func Test_MemoryEventStore_Append_RejectsDuplicateEventID(t *testing.T) {
	// arrange
	es := memoryengine.NewEventStore()
	ctx := context.Background()
	event := givenStoredEvent(t, "agg-1", "tenant-1", 1)
	require.NoError(t, es.Append(ctx, event))

	duplicate := givenStoredEvent(t, "agg-1", "tenant-1", 2)
	duplicate.EventID = event.EventID

	// act
	err := es.Append(ctx, duplicate)

	// assert
	assert.ErrorIs(t, err, eventstore.ErrVersionConflict)
}

func Test_MemoryEventStore_SameAggregateIDInDifferentTenantsAreSeparateStreams(t *testing.T) {
	// arrange
	es := memoryengine.NewEventStore()
	ctx := context.Background()

	// act
	require.NoError(t, es.Append(ctx, givenStoredEvent(t, "agg-1", "tenant-1", 1)))
	require.NoError(t, es.Append(ctx, givenStoredEvent(t, "agg-1", "tenant-2", 1)))

	// assert
	tenantOne, err := es.Events(ctx, "agg-1", "tenant-1")
	require.NoError(t, err)
	assert.Len(t, tenantOne, 1)

	tenantTwo, err := es.Events(ctx, "agg-1", "tenant-2")
	require.NoError(t, err)
	assert.Len(t, tenantTwo, 1)
}

func Test_MemoryEventStore_EventsAfterVersion_ReturnsOnlyNewerEvents(t *testing.T) {
	// arrange
	es := memoryengine.NewEventStore()
	ctx := context.Background()
	for version := int64(1); version <= 4; version++ {
		require.NoError(t, es.Append(ctx, givenStoredEvent(t, "agg-1", "tenant-1", version)))
	}

	// act
	events, err := es.EventsAfterVersion(ctx, "agg-1", "tenant-1", 2)

	// assert
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(3), events[0].Version)
	assert.Equal(t, int64(4), events[1].Version)
}

func Test_MemoryEventStore_EventsAfterSequence_IsTenantScoped(t *testing.T) {
	// arrange
	es := memoryengine.NewEventStore()
	ctx := context.Background()
	require.NoError(t, es.Append(ctx, givenStoredEvent(t, "agg-1", "tenant-1", 1)))
	require.NoError(t, es.Append(ctx, givenStoredEvent(t, "agg-2", "tenant-2", 1)))
	require.NoError(t, es.Append(ctx, givenStoredEvent(t, "agg-1", "tenant-1", 2)))

	// act
	events, err := es.EventsAfterSequence(ctx, "tenant-1", 0, 0)

	// assert
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "tenant-1", events[0].TenantID)
	assert.Equal(t, "tenant-1", events[1].TenantID)
}

func Test_MemoryEventStore_AllEventsAfterSequence_HonorsLimit(t *testing.T) {
	// arrange
	es := memoryengine.NewEventStore()
	ctx := context.Background()
	for version := int64(1); version <= 5; version++ {
		require.NoError(t, es.Append(ctx, givenStoredEvent(t, "agg-1", "tenant-1", version)))
	}

	// act
	events, err := es.AllEventsAfterSequence(ctx, 2, 2)

	// assert
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(3), events[0].GlobalSequence)
	assert.Equal(t, uint64(4), events[1].GlobalSequence)
}

func givenStoredEvent(t *testing.T, aggregateID string, tenantID string, version int64) eventstore.StoredEvent {
	t.Helper()

	event, err := eventstore.BuildStoredEventWithEmptyMetadata(
		uuid.NewString(),
		"SomethingHappened",
		aggregateID,
		"Something",
		tenantID,
		version,
		time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC),
		[]byte(`{"value":1}`),
	)
	require.NoError(t, err)

	return event
}
