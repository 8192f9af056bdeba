package domain

import (
	"time"

	"github.com/google/uuid"
)

// Aggregate type identifiers, used as the AggregateType discriminator on
// stored events.
const (
	AggregateTypeSession     = "Session"
	AggregateTypeLicensePool = "LicensePool"
	AggregateTypeCompany     = "Company"
	AggregateTypeProduct     = "Product"
	AggregateTypeParticipant = "Participant"
)

// Payload is the tagged union of event payloads. Exactly one concrete struct
// exists per (aggregate type, event type) pair; aggregates switch on the
// concrete type in apply with an error default, so an unhandled event type is
// a hard failure instead of a silent no-op.
type Payload interface {
	// IsEventType returns the event type identifier.
	IsEventType() string

	// IsAggregateType returns the aggregate type the payload belongs to.
	IsAggregateType() string
}

// Metadata carries correlation information alongside every event. A retried
// command produces fresh events with a fresh EventID but keeps the
// correlation id of the originating request.
type Metadata struct {
	CausationID   string
	CorrelationID string
}

// Events is a slice of Event instances.
type Events = []Event

// Event is the domain-side event envelope. It mirrors
// eventstore.StoredEvent with the payload decoded into its concrete type.
// Immutable once built.
type Event struct {
	EventID       string
	EventType     string
	AggregateID   string
	AggregateType string
	TenantID      string
	Version       int64
	OccurredAt    time.Time
	Payload       Payload
	Metadata      Metadata
}

// BuildEvent creates a new Event around the given payload, assigning a fresh
// globally unique EventID.
func BuildEvent(
	aggregateID string,
	tenantID string,
	version int64,
	occurredAt time.Time,
	payload Payload,
	metadata Metadata,
) Event {

	return Event{
		EventID:       uuid.NewString(),
		EventType:     payload.IsEventType(),
		AggregateID:   aggregateID,
		AggregateType: payload.IsAggregateType(),
		TenantID:      tenantID,
		Version:       version,
		OccurredAt:    occurredAt,
		Payload:       payload,
		Metadata:      metadata,
	}
}
