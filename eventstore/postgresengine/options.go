package postgresengine

import (
	"github.com/probelab/assesscore/eventstore"
)

// Logger is the basic logging contract, see eventstore.Logger.
type Logger = eventstore.Logger

// ContextualLogger is the context-aware logging contract, see eventstore.ContextualLogger.
type ContextualLogger = eventstore.ContextualLogger

// MetricsCollector is the metrics contract, see eventstore.MetricsCollector.
type MetricsCollector = eventstore.MetricsCollector

// TracingCollector is the tracing contract, see eventstore.TracingCollector.
type TracingCollector = eventstore.TracingCollector

// SpanContext is an active tracing span, see eventstore.SpanContext.
type SpanContext = eventstore.SpanContext

// Option defines a functional option for configuring EventStore.
type Option func(*EventStore) error

// WithTableName sets the events table name for the EventStore.
func WithTableName(tableName string) Option {
	return func(es *EventStore) error {
		if tableName == "" {
			return eventstore.ErrEmptyEventsTableName
		}

		es.eventTableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the EventStore.
//
// Debug level: SQL queries with execution timing (development use)
// Info level: event counts, durations, version conflicts (production-safe)
// Warn level: non-critical issues like cleanup failures
// Error level: failures that cause operation failures.
func WithLogger(logger Logger) Option {
	return func(es *EventStore) error {
		es.logger = logger
		return nil
	}
}

// WithContextualLogger sets the context-aware logger for the EventStore.
// When both loggers are configured the contextual one wins.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(es *EventStore) error {
		es.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the EventStore. It receives
// append/query durations, event counts, version-conflict counts, and database
// error counts.
func WithMetrics(collector MetricsCollector) Option {
	return func(es *EventStore) error {
		es.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the EventStore. Every append and
// query operation runs inside its own span, with the outcome (success,
// conflict, error) recorded as the span status.
func WithTracing(collector TracingCollector) Option {
	return func(es *EventStore) error {
		es.tracingCollector = collector
		return nil
	}
}
