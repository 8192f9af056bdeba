package postgresengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/assesscore/eventstore"
	"github.com/probelab/assesscore/eventstore/postgresengine"
)

func Test_NewEventStoreFromSQLDB_RejectsNilConnection(t *testing.T) {
	// act
	_, err := postgresengine.NewEventStoreFromSQLDB(nil)

	// assert
	assert.ErrorIs(t, err, eventstore.ErrNilDatabaseConnection)
}

func Test_NewEventStoreFromSQLDB_RejectsEmptyTableName(t *testing.T) {
	// arrange
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// act
	_, err = postgresengine.NewEventStoreFromSQLDB(db, postgresengine.WithTableName(""))

	// assert
	assert.ErrorIs(t, err, eventstore.ErrEmptyEventsTableName)
}

func Test_PostgresEventStore_Append_Succeeds(t *testing.T) {
	// arrange
	es, mock := newEventStoreWithMock(t)
	event := givenStoredEvent(t, "session-1", 1)

	mock.ExpectExec(`INSERT INTO "events"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// act
	err := es.Append(context.Background(), event)

	// assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_PostgresEventStore_Append_ZeroRowsAffectedMeansVersionConflict(t *testing.T) {
	// arrange
	es, mock := newEventStoreWithMock(t)
	event := givenStoredEvent(t, "session-1", 2)

	// The conditional insert writes nothing when the stream's max version
	// does not match the expected predecessor.
	mock.ExpectExec(`INSERT INTO "events"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// act
	err := es.Append(context.Background(), event)

	// assert
	assert.ErrorIs(t, err, eventstore.ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_PostgresEventStore_Append_UniqueViolationMapsToVersionConflict(t *testing.T) {
	// arrange
	es, mock := newEventStoreWithMock(t)
	event := givenStoredEvent(t, "session-1", 2)

	mock.ExpectExec(`INSERT INTO "events"`).
		WillReturnError(&pq.Error{Code: "23505"})

	// act
	err := es.Append(context.Background(), event)

	// assert
	assert.ErrorIs(t, err, eventstore.ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_PostgresEventStore_Append_OtherDBErrorIsNotAConflict(t *testing.T) {
	// arrange
	es, mock := newEventStoreWithMock(t)
	event := givenStoredEvent(t, "session-1", 1)

	mock.ExpectExec(`INSERT INTO "events"`).
		WillReturnError(&pq.Error{Code: "53300"})

	// act
	err := es.Append(context.Background(), event)

	// assert
	assert.ErrorIs(t, err, eventstore.ErrAppendingEventFailed)
	assert.NotErrorIs(t, err, eventstore.ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_PostgresEventStore_Events_ScansAllColumns(t *testing.T) {
	// arrange
	es, mock := newEventStoreWithMock(t)
	first := givenStoredEvent(t, "session-1", 1)
	second := givenStoredEvent(t, "session-1", 2)

	mock.ExpectQuery(`SELECT .+ FROM "events" WHERE .+ ORDER BY "version" ASC`).
		WillReturnRows(givenEventRows(first, second))

	// act
	events, err := es.Events(context.Background(), "session-1", "tenant-1")

	// assert
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, first.EventID, events[0].EventID)
	assert.Equal(t, int64(1), events[0].Version)
	assert.Equal(t, uint64(1), events[0].GlobalSequence)
	assert.Equal(t, second.EventID, events[1].EventID)
	assert.Equal(t, uint64(2), events[1].GlobalSequence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_PostgresEventStore_AllEventsAfterSequence_AppliesLimit(t *testing.T) {
	// arrange
	es, mock := newEventStoreWithMock(t)
	event := givenStoredEvent(t, "session-1", 1)

	mock.ExpectQuery(`SELECT .+ FROM "events" WHERE \("global_sequence" > .+ ORDER BY "global_sequence" ASC LIMIT 50`).
		WillReturnRows(givenEventRows(event))

	// act
	events, err := es.AllEventsAfterSequence(context.Background(), 10, 50)

	// assert
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_PostgresEventStore_EventsAfterSequence_IsTenantScoped(t *testing.T) {
	// arrange
	es, mock := newEventStoreWithMock(t)
	event := givenStoredEvent(t, "session-1", 1)

	mock.ExpectQuery(`SELECT .+ FROM "events" WHERE \(\("tenant_id" = 'tenant-1'\) AND \("global_sequence" > .+\)\) ORDER BY "global_sequence" ASC`).
		WillReturnRows(givenEventRows(event))

	// act
	events, err := es.EventsAfterSequence(context.Background(), "tenant-1", 0, 0)

	// assert
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_PostgresEventStore_Append_RecordsTracingSpan(t *testing.T) {
	// arrange
	tracing := &recordingTracingCollector{}
	es, mock := newTracedEventStoreWithMock(t, tracing)
	event := givenStoredEvent(t, "session-1", 1)

	mock.ExpectExec(`INSERT INTO "events"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// act
	err := es.Append(context.Background(), event)

	// assert
	require.NoError(t, err)
	require.Len(t, tracing.finished, 1)
	span := tracing.finished[0]
	assert.Equal(t, "eventstore.append", span.name)
	assert.Equal(t, "success", span.status)
	assert.Equal(t, "SessionCreated", span.startAttrs["event_type"])
	assert.Equal(t, "session-1", span.startAttrs["aggregate_id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_PostgresEventStore_Append_VersionConflictSpanStatusIsConflict(t *testing.T) {
	// arrange
	tracing := &recordingTracingCollector{}
	es, mock := newTracedEventStoreWithMock(t, tracing)
	event := givenStoredEvent(t, "session-1", 2)

	mock.ExpectExec(`INSERT INTO "events"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// act
	err := es.Append(context.Background(), event)

	// assert
	assert.ErrorIs(t, err, eventstore.ErrVersionConflict)
	require.Len(t, tracing.finished, 1)
	assert.Equal(t, "conflict", tracing.finished[0].status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_PostgresEventStore_Events_RecordsTracingSpanWithEventCount(t *testing.T) {
	// arrange
	tracing := &recordingTracingCollector{}
	es, mock := newTracedEventStoreWithMock(t, tracing)
	first := givenStoredEvent(t, "session-1", 1)
	second := givenStoredEvent(t, "session-1", 2)

	mock.ExpectQuery(`SELECT .+ FROM "events"`).
		WillReturnRows(givenEventRows(first, second))

	// act
	_, err := es.Events(context.Background(), "session-1", "tenant-1")

	// assert
	require.NoError(t, err)
	require.Len(t, tracing.finished, 1)
	span := tracing.finished[0]
	assert.Equal(t, "eventstore.query", span.name)
	assert.Equal(t, "success", span.status)
	assert.Equal(t, "2", span.finishAttrs["event_count"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_PostgresEventStore_Events_QueryErrorSpanStatusIsError(t *testing.T) {
	// arrange
	tracing := &recordingTracingCollector{}
	es, mock := newTracedEventStoreWithMock(t, tracing)

	mock.ExpectQuery(`SELECT .+ FROM "events"`).
		WillReturnError(assert.AnError)

	// act
	_, err := es.Events(context.Background(), "session-1", "tenant-1")

	// assert
	assert.ErrorIs(t, err, eventstore.ErrQueryingEventsFailed)
	require.Len(t, tracing.finished, 1)
	assert.Equal(t, "error", tracing.finished[0].status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_PostgresEventStore_Events_RecordsQueriedEventCountValue(t *testing.T) {
	// arrange
	metrics := &recordingMetricsCollector{}
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	es, err := postgresengine.NewEventStoreFromSQLDB(db, postgresengine.WithMetrics(metrics))
	require.NoError(t, err)

	event := givenStoredEvent(t, "session-1", 1)
	mock.ExpectQuery(`SELECT .+ FROM "events"`).
		WillReturnRows(givenEventRows(event))

	// act
	_, err = es.Events(context.Background(), "session-1", "tenant-1")

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1.0, metrics.values["eventstore_events_queried"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_PostgresEventStore_Events_QueryErrorIsWrapped(t *testing.T) {
	// arrange
	es, mock := newEventStoreWithMock(t)

	mock.ExpectQuery(`SELECT .+ FROM "events"`).
		WillReturnError(assert.AnError)

	// act
	_, err := es.Events(context.Background(), "session-1", "tenant-1")

	// assert
	assert.ErrorIs(t, err, eventstore.ErrQueryingEventsFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*** Test helpers ***/

func newEventStoreWithMock(t *testing.T) (postgresengine.EventStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	es, err := postgresengine.NewEventStoreFromSQLDB(db)
	require.NoError(t, err)

	return es, mock
}

func newTracedEventStoreWithMock(t *testing.T, tracing postgresengine.TracingCollector) (postgresengine.EventStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	es, err := postgresengine.NewEventStoreFromSQLDB(db, postgresengine.WithTracing(tracing))
	require.NoError(t, err)

	return es, mock
}

type recordedSpan struct {
	name        string
	status      string
	startAttrs  map[string]string
	finishAttrs map[string]string
}

type recordingSpanContext struct {
	name  string
	attrs map[string]string
}

func (s *recordingSpanContext) SetStatus(string)         {}
func (s *recordingSpanContext) AddAttribute(_, _ string) {}

type recordingTracingCollector struct {
	finished []recordedSpan
}

func (c *recordingTracingCollector) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, eventstore.SpanContext) {

	return ctx, &recordingSpanContext{name: name, attrs: attrs}
}

func (c *recordingTracingCollector) FinishSpan(spanCtx eventstore.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*recordingSpanContext)
	if !ok {
		return
	}

	c.finished = append(c.finished, recordedSpan{
		name:        span.name,
		status:      status,
		startAttrs:  span.attrs,
		finishAttrs: attrs,
	})
}

type recordingMetricsCollector struct {
	values map[string]float64
}

func (c *recordingMetricsCollector) RecordDuration(string, time.Duration, map[string]string) {}

func (c *recordingMetricsCollector) IncrementCounter(string, map[string]string) {}

func (c *recordingMetricsCollector) RecordValue(metric string, value float64, _ map[string]string) {
	if c.values == nil {
		c.values = make(map[string]float64)
	}

	c.values[metric] = value
}

func givenStoredEvent(t *testing.T, aggregateID string, version int64) eventstore.StoredEvent {
	t.Helper()

	event, err := eventstore.BuildStoredEventWithEmptyMetadata(
		uuid.NewString(),
		"SessionCreated",
		aggregateID,
		"Session",
		"tenant-1",
		version,
		time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC),
		[]byte(`{"token":"abc"}`),
	)
	require.NoError(t, err)

	return event
}

func givenEventRows(events ...eventstore.StoredEvent) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"event_id", "event_type", "aggregate_id", "aggregate_type", "tenant_id",
		"version", "occurred_at", "payload", "metadata", "global_sequence",
	})

	for i, event := range events {
		rows.AddRow(
			event.EventID,
			event.EventType,
			event.AggregateID,
			event.AggregateType,
			event.TenantID,
			event.Version,
			event.OccurredAt,
			event.PayloadJSON,
			event.MetadataJSON,
			uint64(i+1),
		)
	}

	return rows
}
