package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/probelab/assesscore/domain"
	"github.com/probelab/assesscore/eventstore"
	"github.com/probelab/assesscore/projection"
)

// handlerConfig carries the cross-cutting dependencies shared by all five
// handlers: the clock, observability, and retry tuning.
type handlerConfig struct {
	clock            func() time.Time
	logger           eventstore.Logger
	metricsCollector eventstore.MetricsCollector
	retryOptions     []RetryOption
}

func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		clock: time.Now,
	}
}

// Option defines a functional option applied to any command handler.
type Option func(*handlerConfig) error

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock func() time.Time) Option {
	return func(config *handlerConfig) error {
		if clock == nil {
			return fmt.Errorf("clock must not be nil")
		}

		config.clock = clock

		return nil
	}
}

// WithLogger sets the logger used for projection-lag warnings and retry
// diagnostics.
func WithLogger(logger eventstore.Logger) Option {
	return func(config *handlerConfig) error {
		config.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for command instrumentation.
func WithMetrics(collector eventstore.MetricsCollector) Option {
	return func(config *handlerConfig) error {
		config.metricsCollector = collector
		return nil
	}
}

// WithRetry tunes the version-conflict retry behavior of the handler.
func WithRetry(options ...RetryOption) Option {
	return func(config *handlerConfig) error {
		config.retryOptions = append(config.retryOptions, options...)
		return nil
	}
}

func (c handlerConfig) now() time.Time {
	return c.clock()
}

func (c handlerConfig) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c handlerConfig) countCommand(commandType string, outcome string) {
	if c.metricsCollector != nil {
		c.metricsCollector.IncrementCounter("commandhandler_commands_total", map[string]string{
			"command_type": commandType,
			"outcome":      outcome,
		})
	}
}

// run wraps one command execution in the version-conflict retry loop and
// records the outcome.
func (c handlerConfig) run(ctx context.Context, commandType string, fn RetryableFunc) error {
	err := retryOnVersionConflict(ctx, fn, c.retryOptions...)
	if err != nil {
		c.countCommand(commandType, "failure")
		return err
	}

	c.countCommand(commandType, "success")

	return nil
}

// committer is what the commit helper needs from an aggregate.
type committer interface {
	UncommittedEvents() domain.Events
	MarkEventsCommitted()
}

// loadHistory reads and decodes the full event history of one aggregate
// instance. The read is pinned to the primary so the handler sees its own
// prior writes.
func loadHistory(ctx context.Context, events eventstore.Store, aggregateID string, tenantID string) (domain.Events, error) {
	storedEvents, err := events.Events(eventstore.WithStrongConsistency(ctx), aggregateID, tenantID)
	if err != nil {
		return nil, err
	}

	return domain.EventsFrom(storedEvents)
}

// commit appends the aggregate's uncommitted events in buffer order, then
// applies them to the projections. If an append fails midway the events
// already appended stay durable and the buffer is NOT cleared; the caller
// reloads on retry instead of assuming all-or-nothing. Projection failures do
// not fail the command: the catch-up projector heals them from its
// checkpoint, so here they are only logged.
func commit(ctx context.Context, config handlerConfig, events eventstore.Store, stores projection.Stores, aggregate committer) error {
	uncommitted := aggregate.UncommittedEvents()

	for _, event := range uncommitted {
		storedEvent, err := domain.StoredEventFrom(event)
		if err != nil {
			return err
		}

		if err := events.Append(ctx, storedEvent); err != nil {
			return err
		}
	}

	for _, event := range uncommitted {
		if err := stores.Dispatch(ctx, event); err != nil {
			config.warn("projection update failed, projector will catch up",
				"event_id", event.EventID,
				"event_type", event.EventType,
				"aggregate_type", event.AggregateType,
				"error", err.Error())
		}
	}

	aggregate.MarkEventsCommitted()

	return nil
}

// newAggregateID generates an id for commands that do not bring their own.
func newAggregateID(given string) string {
	if given != "" {
		return given
	}

	return uuid.NewString()
}
