package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/probelab/assesscore/domain"
	"github.com/probelab/assesscore/eventstore"
)

const (
	defaultProjectorName = "catch-up"
	defaultBatchSize     = 200
	defaultPollInterval  = 2 * time.Second
)

// ErrNonPositiveBatchSize is returned when a projector is configured with a
// batch size below 1.
var ErrNonPositiveBatchSize = errors.New("batch size must be positive")

// Projector drives projection updates from a durable cursor over the global
// event sequence. Command handlers apply events to the projections
// synchronously on the happy path; the Projector exists for the crash window
// between append and projection, and for full rebuilds.
//
// It reads batches of events past its checkpoint, fans them out to the
// projection stores with per-aggregate-type workers (order within a stream is
// preserved because the global sequence respects append order), and advances
// the checkpoint only after the whole batch is applied. Projection stores are
// idempotent, so re-processing a batch after a crash is harmless.
type Projector struct {
	events       eventstore.Store
	stores       Stores
	checkpoints  CheckpointStore
	name         string
	batchSize    int
	pollInterval time.Duration
	logger       eventstore.Logger
}

// ProjectorOption defines a functional option for configuring a Projector.
type ProjectorOption func(*Projector) error

// WithProjectorName sets the checkpoint key, letting multiple projectors run
// with independent cursors.
func WithProjectorName(name string) ProjectorOption {
	return func(p *Projector) error {
		if name == "" {
			return errors.New("projector name must not be empty")
		}

		p.name = name

		return nil
	}
}

// WithBatchSize sets how many events are read per catch-up round.
func WithBatchSize(batchSize int) ProjectorOption {
	return func(p *Projector) error {
		if batchSize < 1 {
			return ErrNonPositiveBatchSize
		}

		p.batchSize = batchSize

		return nil
	}
}

// WithPollInterval sets how long Run sleeps when the projector is caught up.
func WithPollInterval(interval time.Duration) ProjectorOption {
	return func(p *Projector) error {
		if interval <= 0 {
			return errors.New("poll interval must be positive")
		}

		p.pollInterval = interval

		return nil
	}
}

// WithProjectorLogger sets the logger for the Projector.
func WithProjectorLogger(logger eventstore.Logger) ProjectorOption {
	return func(p *Projector) error {
		p.logger = logger
		return nil
	}
}

// NewProjector constructs a Projector over the given event source, stores and
// checkpoint store.
func NewProjector(
	events eventstore.Store,
	stores Stores,
	checkpoints CheckpointStore,
	options ...ProjectorOption,
) (*Projector, error) {

	p := &Projector{
		events:       events,
		stores:       stores,
		checkpoints:  checkpoints,
		name:         defaultProjectorName,
		batchSize:    defaultBatchSize,
		pollInterval: defaultPollInterval,
	}

	for _, option := range options {
		if err := option(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Run catches up and then keeps polling until the context is canceled.
func (p *Projector) Run(ctx context.Context) error {
	for {
		processed, err := p.RunOnce(ctx)
		if err != nil {
			return err
		}

		if processed > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}
}

// RunOnce processes a single batch of events past the checkpoint and returns
// how many were applied. A return of 0 means the projector is caught up.
func (p *Projector) RunOnce(ctx context.Context) (int, error) {
	checkpoint, err := p.checkpoints.Checkpoint(ctx, p.name)
	if err != nil {
		return 0, fmt.Errorf("loading checkpoint %s: %w", p.name, err)
	}

	// Replica reads are fine here: the checkpoint only ever advances to what
	// was actually read and applied.
	storedEvents, err := p.events.AllEventsAfterSequence(eventstore.WithEventualConsistency(ctx), checkpoint, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("reading events after sequence %d: %w", checkpoint, err)
	}

	if len(storedEvents) == 0 {
		return 0, nil
	}

	events, err := domain.EventsFrom(storedEvents)
	if err != nil {
		return 0, err
	}

	if err := p.applyBatch(ctx, events); err != nil {
		return 0, err
	}

	lastSequence := storedEvents[len(storedEvents)-1].GlobalSequence
	if err := p.checkpoints.SaveCheckpoint(ctx, p.name, lastSequence); err != nil {
		return 0, fmt.Errorf("saving checkpoint %s at %d: %w", p.name, lastSequence, err)
	}

	if p.logger != nil {
		p.logger.Debug(fmt.Sprintf("projector %s applied %d events up to sequence %d", p.name, len(events), lastSequence))
	}

	return len(events), nil
}

// applyBatch partitions the batch by aggregate type and applies each
// partition sequentially in its own worker. Events of one stream always share
// an aggregate type, so per-stream order is preserved.
func (p *Projector) applyBatch(ctx context.Context, events domain.Events) error {
	partitions := make(map[string]domain.Events)
	for _, event := range events {
		partitions[event.AggregateType] = append(partitions[event.AggregateType], event)
	}

	g, groupCtx := errgroup.WithContext(ctx)

	for _, partition := range partitions {
		g.Go(func() error {
			for _, event := range partition {
				if err := p.stores.Dispatch(groupCtx, event); err != nil {
					return fmt.Errorf("projecting event %s (%s v%d): %w",
						event.EventID, event.AggregateType, event.Version, err)
				}
			}

			return nil
		})
	}

	return g.Wait()
}
