package eventstore

import "context"

// ConsistencyLevel defines the consistency requirements for Store reads.
type ConsistencyLevel int

const (
	// StrongConsistency requires reads from the primary database so a command
	// handler sees its own writes. This is the default.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency allows reads from replicas, trading freshness for
	// reduced primary load. Safe for catch-up reads that are guarded by a
	// durable cursor and for operator scans.
	EventualConsistency
)

// contextKey is a private type to prevent context key collisions.
type contextKey string

// ConsistencyLevelKey is the context key carrying the consistency preference.
const ConsistencyLevelKey contextKey = "eventstore.consistency_level"

// WithStrongConsistency returns a context that signals reads must go to the
// primary database. Command handlers use this for their read-check-write
// cycle.
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, StrongConsistency)
}

// WithEventualConsistency returns a context that signals reads may go to a
// replica. The catch-up projector and operator tooling use this; their
// correctness does not depend on seeing the newest appends.
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, EventualConsistency)
}

// GetConsistencyLevel extracts the consistency level from the context,
// defaulting to StrongConsistency.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	if level, ok := ctx.Value(ConsistencyLevelKey).(ConsistencyLevel); ok {
		return level
	}

	return StrongConsistency
}

// String returns the level's name for logging.
func (c ConsistencyLevel) String() string {
	switch c {
	case StrongConsistency:
		return "strong"
	case EventualConsistency:
		return "eventual"
	default:
		return "unknown"
	}
}
