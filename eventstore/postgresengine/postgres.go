package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/probelab/assesscore/eventstore"
	"github.com/probelab/assesscore/eventstore/postgresengine/internal/adapters"
)

const (
	defaultEventTableName = "events"

	colEventID        = "event_id"
	colEventType      = "event_type"
	colAggregateID    = "aggregate_id"
	colAggregateType  = "aggregate_type"
	colTenantID       = "tenant_id"
	colVersion        = "version"
	colOccurredAt     = "occurred_at"
	colPayload        = "payload"
	colMetadata       = "metadata"
	colGlobalSequence = "global_sequence"

	cteStream       = "stream"
	aliasMaxVersion = "max_version"
	dialectPostgres = "postgres"
	castTimestamp   = "?::timestamp with time zone"
	castJsonb       = "?::jsonb"

	pgCodeUniqueViolation = "23505"
)

type sqlQueryString = string

// EventStore is the Postgres implementation of eventstore.Store.
//
// Append is a single conditional write: the insert only takes effect when the
// event's version is exactly one above the stream's current maximum, so two
// concurrent commands against the same aggregate instance serialize and the
// loser observes eventstore.ErrVersionConflict. A unique index on
// (aggregate_id, tenant_id, version) backs this up; its violation is mapped
// to the same error.
type EventStore struct {
	db               adapters.DBAdapter
	eventTableName   string
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
}

// NewEventStoreFromPGXPool creates a new EventStore using a pgx pool with optional configuration.
func NewEventStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return applyOptions(EventStore{
		db:             adapters.NewPGXAdapter(db),
		eventTableName: defaultEventTableName,
	}, options)
}

// NewEventStoreFromPGXPoolWithReplica creates a new EventStore using a primary
// pgx pool for writes and a replica pool for reads. The replica is only
// consulted for reads whose context carries eventual consistency (see
// eventstore.WithEventualConsistency); everything else stays on the primary.
func NewEventStoreFromPGXPoolWithReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (EventStore, error) {
	if db == nil || replica == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return applyOptions(EventStore{
		db:             adapters.NewPGXAdapterWithReplica(db, replica),
		eventTableName: defaultEventTableName,
	}, options)
}

// NewEventStoreFromSQLDB creates a new EventStore using a sql.DB with optional configuration.
func NewEventStoreFromSQLDB(db *sql.DB, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return applyOptions(EventStore{
		db:             adapters.NewSQLAdapter(db),
		eventTableName: defaultEventTableName,
	}, options)
}

// NewEventStoreFromSQLX creates a new EventStore using a sqlx.DB with optional configuration.
func NewEventStoreFromSQLX(db *sqlx.DB, options ...Option) (EventStore, error) {
	if db == nil {
		return EventStore{}, eventstore.ErrNilDatabaseConnection
	}

	return applyOptions(EventStore{
		db:             adapters.NewSQLXAdapter(db),
		eventTableName: defaultEventTableName,
	}, options)
}

func applyOptions(es EventStore, options []Option) (EventStore, error) {
	for _, option := range options {
		if err := option(&es); err != nil {
			return EventStore{}, err
		}
	}

	return es, nil
}

// Append persists one event, enforcing version = currentMax+1 atomically.
func (es EventStore) Append(ctx context.Context, event eventstore.StoredEvent) error {
	ctx, span := es.startSpan(ctx, spanNameAppend, map[string]string{
		spanAttrOperation:   logActionAppend,
		spanAttrEventType:   event.EventType,
		spanAttrAggregateID: event.AggregateID,
		spanAttrVersion:     strconv.FormatInt(event.Version, 10),
	})
	spanStatus := statusError
	defer func() { es.finishSpan(span, spanStatus, nil) }()

	sqlQuery, buildErr := es.buildAppendQuery(event)
	if buildErr != nil {
		es.logError(ctx, logMsgBuildInsertQueryFailed, buildErr, logAttrEventType, event.EventType)
		return buildErr
	}

	start := time.Now()
	tag, execErr := es.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	es.logQueryWithDuration(ctx, sqlQuery, logActionAppend, duration)

	if execErr != nil {
		if isUniqueViolation(execErr) {
			spanStatus = statusConflict
			es.recordConflict(ctx, event)

			return errors.Join(eventstore.ErrVersionConflict, execErr)
		}

		es.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)
		es.incrementCounter(metricAppendErrors, labelsFor(event))

		return errors.Join(eventstore.ErrAppendingEventFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := tag.RowsAffected()
	if rowsAffectedErr != nil {
		es.logError(ctx, logMsgRowsAffectedFailed, rowsAffectedErr)
		return errors.Join(eventstore.ErrAppendingEventFailed, rowsAffectedErr)
	}

	if rowsAffected == 0 {
		spanStatus = statusConflict
		es.recordConflict(ctx, event)

		return eventstore.ErrVersionConflict
	}

	spanStatus = statusSuccess

	es.recordDuration(metricAppendDuration, duration, labelsFor(event))
	es.logOperation(ctx, logMsgEventAppended,
		logAttrEventType, event.EventType,
		logAttrAggregateID, event.AggregateID,
		logAttrVersion, event.Version,
		logAttrDurationMS, durationToMilliseconds(duration))

	return nil
}

// Events returns the full ascending history of one aggregate instance.
func (es EventStore) Events(ctx context.Context, aggregateID string, tenantID string) (eventstore.StoredEvents, error) {
	stmt := es.selectStmt().
		Where(goqu.Ex{colAggregateID: aggregateID, colTenantID: tenantID}).
		Order(goqu.I(colVersion).Asc())

	return es.queryEvents(ctx, stmt)
}

// EventsAfterVersion returns the events of one aggregate instance with a
// version strictly greater than afterVersion.
func (es EventStore) EventsAfterVersion(
	ctx context.Context,
	aggregateID string,
	tenantID string,
	afterVersion int64,
) (eventstore.StoredEvents, error) {

	stmt := es.selectStmt().
		Where(
			goqu.Ex{colAggregateID: aggregateID, colTenantID: tenantID},
			goqu.C(colVersion).Gt(afterVersion),
		).
		Order(goqu.I(colVersion).Asc())

	return es.queryEvents(ctx, stmt)
}

// EventsAfterSequence returns tenant-scoped events in global append order.
func (es EventStore) EventsAfterSequence(
	ctx context.Context,
	tenantID string,
	afterSequence uint64,
	limit int,
) (eventstore.StoredEvents, error) {

	stmt := es.selectStmt().
		Where(
			goqu.Ex{colTenantID: tenantID},
			goqu.C(colGlobalSequence).Gt(afterSequence),
		).
		Order(goqu.I(colGlobalSequence).Asc())

	if limit > 0 {
		stmt = stmt.Limit(uint(limit))
	}

	return es.queryEvents(ctx, stmt)
}

// AllEventsAfterSequence is the platform-wide scan reserved for operator
// tooling and projection rebuilds.
func (es EventStore) AllEventsAfterSequence(
	ctx context.Context,
	afterSequence uint64,
	limit int,
) (eventstore.StoredEvents, error) {

	stmt := es.selectStmt().
		Where(goqu.C(colGlobalSequence).Gt(afterSequence)).
		Order(goqu.I(colGlobalSequence).Asc())

	if limit > 0 {
		stmt = stmt.Limit(uint(limit))
	}

	return es.queryEvents(ctx, stmt)
}

func (es EventStore) selectStmt() *goqu.SelectDataset {
	return goqu.Dialect(dialectPostgres).
		From(es.eventTableName).
		Select(
			colEventID, colEventType, colAggregateID, colAggregateType, colTenantID,
			colVersion, colOccurredAt, colPayload, colMetadata, colGlobalSequence,
		)
}

func (es EventStore) buildAppendQuery(event eventstore.StoredEvent) (sqlQueryString, error) {
	builder := goqu.Dialect(dialectPostgres)

	// CTE with the stream's current maximum version.
	cteStmt := builder.
		From(es.eventTableName).
		Select(goqu.MAX(colVersion).As(aliasMaxVersion)).
		Where(goqu.Ex{colAggregateID: event.AggregateID, colTenantID: event.TenantID})

	// The SELECT feeding the INSERT only yields a row when the expected
	// predecessor version matches, which makes the append conditional.
	selectStmt := builder.
		From(cteStream).
		Select(
			goqu.V(event.EventID),
			goqu.V(event.EventType),
			goqu.V(event.AggregateID),
			goqu.V(event.AggregateType),
			goqu.V(event.TenantID),
			goqu.V(event.Version),
			goqu.L(castTimestamp, event.OccurredAt),
			goqu.L(castJsonb, string(event.PayloadJSON)),
			goqu.L(castJsonb, string(event.MetadataJSON)),
		).
		Where(goqu.COALESCE(goqu.C(aliasMaxVersion), 0).Eq(goqu.V(event.Version - 1)))

	insertStmt := builder.
		Insert(es.eventTableName).
		Cols(
			colEventID, colEventType, colAggregateID, colAggregateType, colTenantID,
			colVersion, colOccurredAt, colPayload, colMetadata,
		).
		FromQuery(selectStmt).
		With(cteStream, cteStmt)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (es EventStore) queryEvents(ctx context.Context, stmt *goqu.SelectDataset) (eventstore.StoredEvents, error) {
	ctx, span := es.startSpan(ctx, spanNameQuery, map[string]string{spanAttrOperation: logActionQuery})
	spanStatus := statusError
	var spanAttrs map[string]string
	defer func() { es.finishSpan(span, spanStatus, spanAttrs) }()

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	rows, queryErr := es.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	es.logQueryWithDuration(ctx, sqlQuery, logActionQuery, duration)

	if queryErr != nil {
		es.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		return nil, errors.Join(eventstore.ErrQueryingEventsFailed, queryErr)
	}
	defer es.closeRows(ctx, rows)

	events, scanErr := es.scanEvents(ctx, rows)
	if scanErr != nil {
		return nil, scanErr
	}

	spanStatus = statusSuccess
	spanAttrs = map[string]string{spanAttrEventCount: strconv.Itoa(len(events))}

	es.recordDuration(metricQueryDuration, duration, nil)
	es.recordValue(metricEventsQueried, float64(len(events)), nil)
	es.logOperation(ctx, logMsgQueryCompleted,
		logAttrEventCount, len(events),
		logAttrDurationMS, durationToMilliseconds(duration))

	return events, nil
}

func (es EventStore) scanEvents(ctx context.Context, rows adapters.DBRows) (eventstore.StoredEvents, error) {
	events := make(eventstore.StoredEvents, 0)

	var (
		eventID        string
		eventType      string
		aggregateID    string
		aggregateType  string
		tenantID       string
		version        int64
		occurredAt     time.Time
		payload        []byte
		metadata       []byte
		globalSequence uint64
	)

	for rows.Next() {
		scanErr := rows.Scan(
			&eventID, &eventType, &aggregateID, &aggregateType, &tenantID,
			&version, &occurredAt, &payload, &metadata, &globalSequence,
		)
		if scanErr != nil {
			es.logError(ctx, logMsgScanRowFailed, scanErr)
			return nil, errors.Join(eventstore.ErrScanningDBRowFailed, scanErr)
		}

		event, buildErr := eventstore.BuildStoredEvent(
			eventID, eventType, aggregateID, aggregateType, tenantID, version, occurredAt, payload, metadata)
		if buildErr != nil {
			es.logError(ctx, logMsgBuildStoredEventFailed, buildErr, logAttrEventType, eventType)
			return nil, errors.Join(eventstore.ErrBuildingStoredEventFailed, buildErr)
		}

		event.GlobalSequence = globalSequence
		events = append(events, event)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		es.logError(ctx, logMsgScanRowFailed, rowsErr)
		return nil, errors.Join(eventstore.ErrQueryingEventsFailed, rowsErr)
	}

	return events, nil
}

func (es EventStore) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		es.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

func (es EventStore) recordConflict(ctx context.Context, event eventstore.StoredEvent) {
	es.incrementCounter(metricVersionConflicts, labelsFor(event))
	es.logOperation(ctx, logMsgVersionConflict,
		logAttrEventType, event.EventType,
		logAttrAggregateID, event.AggregateID,
		logAttrVersion, event.Version)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgCodeUniqueViolation
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgCodeUniqueViolation
	}

	return false
}

func durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// Interface guard.
var _ eventstore.Store = EventStore{}
