package postgresengine

import (
	"context"
	"time"

	"github.com/probelab/assesscore/eventstore"
)

const (
	logMsgDBQueryFailed          = "database query execution failed"
	logMsgDBExecFailed           = "database execution failed during event append"
	logMsgRowsAffectedFailed     = "failed to get rows affected count"
	logMsgScanRowFailed          = "failed to scan database row"
	logMsgCloseRowsFailed        = "failed to close database rows"
	logMsgBuildInsertQueryFailed = "failed to build insert query"
	logMsgBuildStoredEventFailed = "failed to build stored event from database row"
	logMsgQueryCompleted         = "eventstore operation: query completed"
	logMsgEventAppended          = "eventstore operation: event appended"
	logMsgVersionConflict        = "eventstore operation: version conflict detected"
	logMsgSQLExecuted            = "executed sql for: "

	logAttrError       = "error"
	logAttrQuery       = "query"
	logAttrEventType   = "event_type"
	logAttrAggregateID = "aggregate_id"
	logAttrVersion     = "version"
	logAttrEventCount  = "event_count"
	logAttrDurationMS  = "duration_ms"

	logActionQuery  = "query"
	logActionAppend = "append"

	metricAppendDuration   = "eventstore_append_duration_seconds"
	metricQueryDuration    = "eventstore_query_duration_seconds"
	metricVersionConflicts = "eventstore_version_conflicts_total"
	metricAppendErrors     = "eventstore_append_errors_total"
	metricEventsQueried    = "eventstore_events_queried"

	labelAggregateType = "aggregate_type"
	labelTenantID      = "tenant_id"

	spanNameAppend = "eventstore.append"
	spanNameQuery  = "eventstore.query"

	spanAttrOperation   = "operation"
	spanAttrEventType   = "event_type"
	spanAttrAggregateID = "aggregate_id"
	spanAttrVersion     = "version"
	spanAttrEventCount  = "event_count"

	statusSuccess  = "success"
	statusConflict = "conflict"
	statusError    = "error"
)

func labelsFor(event eventstore.StoredEvent) map[string]string {
	return map[string]string{
		labelAggregateType: event.AggregateType,
		labelTenantID:      event.TenantID,
	}
}

// logQueryWithDuration logs SQL queries with execution time at debug level.
func (es EventStore) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	if es.contextualLogger != nil {
		es.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action,
			logAttrDurationMS, durationToMilliseconds(duration), logAttrQuery, sqlQuery)
		return
	}

	if es.logger != nil {
		es.logger.Debug(logMsgSQLExecuted+action,
			logAttrDurationMS, durationToMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level.
func (es EventStore) logOperation(ctx context.Context, msg string, args ...any) {
	if es.contextualLogger != nil {
		es.contextualLogger.InfoContext(ctx, msg, args...)
		return
	}

	if es.logger != nil {
		es.logger.Info(msg, args...)
	}
}

func (es EventStore) logWarn(ctx context.Context, msg string, args ...any) {
	if es.contextualLogger != nil {
		es.contextualLogger.WarnContext(ctx, msg, args...)
		return
	}

	if es.logger != nil {
		es.logger.Warn(msg, args...)
	}
}

func (es EventStore) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if es.contextualLogger != nil {
		es.contextualLogger.ErrorContext(ctx, msg, allArgs...)
		return
	}

	if es.logger != nil {
		es.logger.Error(msg, allArgs...)
	}
}

func (es EventStore) recordDuration(metric string, duration time.Duration, labels map[string]string) {
	if es.metricsCollector != nil {
		es.metricsCollector.RecordDuration(metric, duration, labels)
	}
}

func (es EventStore) incrementCounter(metric string, labels map[string]string) {
	if es.metricsCollector != nil {
		es.metricsCollector.IncrementCounter(metric, labels)
	}
}

func (es EventStore) recordValue(metric string, value float64, labels map[string]string) {
	if es.metricsCollector != nil {
		es.metricsCollector.RecordValue(metric, value, labels)
	}
}

func (es EventStore) startSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, eventstore.SpanContext) {
	if es.tracingCollector == nil {
		return ctx, nil
	}

	return es.tracingCollector.StartSpan(ctx, name, attrs)
}

func (es EventStore) finishSpan(span eventstore.SpanContext, status string, attrs map[string]string) {
	if es.tracingCollector == nil || span == nil {
		return
	}

	es.tracingCollector.FinishSpan(span, status, attrs)
}
