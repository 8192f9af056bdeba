package eventstore

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrInvalidPayloadJSON is returned when the payload is not valid JSON.
	ErrInvalidPayloadJSON = errors.New("payload json is not valid")

	// ErrInvalidMetadataJSON is returned when the metadata is not valid JSON.
	ErrInvalidMetadataJSON = errors.New("metadata json is not valid")

	// ErrEmptyEventID is returned when the event id is empty.
	ErrEmptyEventID = errors.New("event id must not be empty")

	// ErrEmptyEventType is returned when the event type is empty.
	ErrEmptyEventType = errors.New("event type must not be empty")

	// ErrEmptyAggregateID is returned when the aggregate id is empty.
	ErrEmptyAggregateID = errors.New("aggregate id must not be empty")

	// ErrEmptyAggregateType is returned when the aggregate type is empty.
	ErrEmptyAggregateType = errors.New("aggregate type must not be empty")

	// ErrEmptyTenantID is returned when the tenant id is empty.
	ErrEmptyTenantID = errors.New("tenant id must not be empty")

	// ErrNonPositiveVersion is returned when the version is below 1.
	ErrNonPositiveVersion = errors.New("version must be a positive integer")
)

// StoredEvents is an alias type for a slice of StoredEvent.
type StoredEvents = []StoredEvent

// StoredEvent is a DTO (data transfer object) used by the event store to append
// events and query them back.
//
// It is built on scalars to be completely agnostic of the implementation of
// domain events in the client code. The stream key is
// (AggregateID, TenantID, Version); Version starts at 1 for the creation event
// and increases strictly by 1 per aggregate instance.
//
// While its properties are exported, it should only be constructed with
// BuildStoredEvent so the invariants above are checked up front.
type StoredEvent struct {
	EventID       string
	EventType     string
	AggregateID   string
	AggregateType string
	TenantID      string
	Version       int64
	OccurredAt    time.Time
	PayloadJSON   []byte
	MetadataJSON  []byte

	// GlobalSequence is the platform-wide append order. It is assigned by the
	// storage engine on append and populated on reads; it is ignored on append.
	GlobalSequence uint64
}

// BuildStoredEvent is a factory method for StoredEvent.
//
// It validates the stream key scalars and that payloadJSON and metadataJSON
// contain valid JSON.
func BuildStoredEvent(
	eventID string,
	eventType string,
	aggregateID string,
	aggregateType string,
	tenantID string,
	version int64,
	occurredAt time.Time,
	payloadJSON []byte,
	metadataJSON []byte,
) (StoredEvent, error) {

	switch {
	case eventID == "":
		return StoredEvent{}, ErrEmptyEventID
	case eventType == "":
		return StoredEvent{}, ErrEmptyEventType
	case aggregateID == "":
		return StoredEvent{}, ErrEmptyAggregateID
	case aggregateType == "":
		return StoredEvent{}, ErrEmptyAggregateType
	case tenantID == "":
		return StoredEvent{}, ErrEmptyTenantID
	case version < 1:
		return StoredEvent{}, ErrNonPositiveVersion
	}

	if !json.Valid(payloadJSON) {
		return StoredEvent{}, ErrInvalidPayloadJSON
	}

	if !json.Valid(metadataJSON) {
		return StoredEvent{}, ErrInvalidMetadataJSON
	}

	return StoredEvent{
		EventID:       eventID,
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		TenantID:      tenantID,
		Version:       version,
		OccurredAt:    occurredAt,
		PayloadJSON:   payloadJSON,
		MetadataJSON:  metadataJSON,
	}, nil
}

// BuildStoredEventWithEmptyMetadata is a factory method for StoredEvent which
// creates valid empty JSON for MetadataJSON.
func BuildStoredEventWithEmptyMetadata(
	eventID string,
	eventType string,
	aggregateID string,
	aggregateType string,
	tenantID string,
	version int64,
	occurredAt time.Time,
	payloadJSON []byte,
) (StoredEvent, error) {

	return BuildStoredEvent(
		eventID, eventType, aggregateID, aggregateType, tenantID, version, occurredAt, payloadJSON, []byte("{}"))
}
