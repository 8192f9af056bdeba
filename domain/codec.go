package domain

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/probelab/assesscore/eventstore"
)

// ErrUnknownEventType is returned when a stored event carries an event type
// that no payload struct is registered for. This only happens when a newer
// writer appended an event an older reader does not know yet.
var ErrUnknownEventType = errors.New("unknown event type")

var marshaler = jsoniter.ConfigFastest

// StoredEventFrom converts a domain Event into the scalar DTO the event store
// persists.
func StoredEventFrom(event Event) (eventstore.StoredEvent, error) {
	payloadJSON, err := marshaler.Marshal(event.Payload)
	if err != nil {
		return eventstore.StoredEvent{}, fmt.Errorf("marshaling payload for event type %s: %w", event.EventType, err)
	}

	metadataJSON, err := marshaler.Marshal(event.Metadata)
	if err != nil {
		return eventstore.StoredEvent{}, fmt.Errorf("marshaling metadata for event type %s: %w", event.EventType, err)
	}

	return eventstore.BuildStoredEvent(
		event.EventID,
		event.EventType,
		event.AggregateID,
		event.AggregateType,
		event.TenantID,
		event.Version,
		event.OccurredAt,
		payloadJSON,
		metadataJSON,
	)
}

// EventFrom converts a stored event back into a domain Event with its payload
// decoded into the concrete struct for its event type.
func EventFrom(storedEvent eventstore.StoredEvent) (Event, error) {
	payload, err := payloadFor(storedEvent.EventType, storedEvent.PayloadJSON)
	if err != nil {
		return Event{}, err
	}

	var metadata Metadata
	if len(storedEvent.MetadataJSON) > 0 {
		if err := marshaler.Unmarshal(storedEvent.MetadataJSON, &metadata); err != nil {
			return Event{}, fmt.Errorf("unmarshaling metadata for event type %s: %w", storedEvent.EventType, err)
		}
	}

	return Event{
		EventID:       storedEvent.EventID,
		EventType:     storedEvent.EventType,
		AggregateID:   storedEvent.AggregateID,
		AggregateType: storedEvent.AggregateType,
		TenantID:      storedEvent.TenantID,
		Version:       storedEvent.Version,
		OccurredAt:    storedEvent.OccurredAt,
		Payload:       payload,
		Metadata:      metadata,
	}, nil
}

// EventsFrom converts a slice of stored events, preserving order.
func EventsFrom(storedEvents eventstore.StoredEvents) (Events, error) {
	events := make(Events, 0, len(storedEvents))

	for _, storedEvent := range storedEvents {
		event, err := EventFrom(storedEvent)
		if err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	return events, nil
}

// payloadFor decodes the payload JSON into the concrete struct for the event
// type. Every event type in the system must have a case here.
func payloadFor(eventType string, payloadJSON []byte) (Payload, error) {
	switch eventType {
	case SessionCreatedEventType:
		return decodePayload[SessionCreated](eventType, payloadJSON)
	case SessionStartedEventType:
		return decodePayload[SessionStarted](eventType, payloadJSON)
	case ResponseRecordedEventType:
		return decodePayload[ResponseRecorded](eventType, payloadJSON)
	case PageCompletedEventType:
		return decodePayload[PageCompleted](eventType, payloadJSON)
	case SessionCompletedEventType:
		return decodePayload[SessionCompleted](eventType, payloadJSON)
	case SessionExpiredEventType:
		return decodePayload[SessionExpired](eventType, payloadJSON)
	case SessionSuspendedEventType:
		return decodePayload[SessionSuspended](eventType, payloadJSON)

	case LicensePoolCreatedEventType:
		return decodePayload[LicensePoolCreated](eventType, payloadJSON)
	case LicenseConsumedEventType:
		return decodePayload[LicenseConsumed](eventType, payloadJSON)
	case LicensesAddedEventType:
		return decodePayload[LicensesAdded](eventType, payloadJSON)
	case LicenseReleasedEventType:
		return decodePayload[LicenseReleased](eventType, payloadJSON)

	case CompanyCreatedEventType:
		return decodePayload[CompanyCreated](eventType, payloadJSON)
	case UserAddedEventType:
		return decodePayload[UserAdded](eventType, payloadJSON)
	case CompanyUpdatedEventType:
		return decodePayload[CompanyUpdated](eventType, payloadJSON)
	case CompanyDeactivatedEventType:
		return decodePayload[CompanyDeactivated](eventType, payloadJSON)

	case ProductCreatedEventType:
		return decodePayload[ProductCreated](eventType, payloadJSON)
	case ProductUpdatedEventType:
		return decodePayload[ProductUpdated](eventType, payloadJSON)
	case ProductPriceChangedEventType:
		return decodePayload[ProductPriceChanged](eventType, payloadJSON)
	case ProductDiscontinuedEventType:
		return decodePayload[ProductDiscontinued](eventType, payloadJSON)

	case ParticipantRegisteredEventType:
		return decodePayload[ParticipantRegistered](eventType, payloadJSON)
	case ParticipantUpdatedEventType:
		return decodePayload[ParticipantUpdated](eventType, payloadJSON)
	case SessionAssignedEventType:
		return decodePayload[SessionAssigned](eventType, payloadJSON)
	case ParticipantDeactivatedEventType:
		return decodePayload[ParticipantDeactivated](eventType, payloadJSON)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}
}

func decodePayload[P Payload](eventType string, payloadJSON []byte) (Payload, error) {
	var payload P
	if err := marshaler.Unmarshal(payloadJSON, &payload); err != nil {
		return nil, fmt.Errorf("unmarshaling payload for event type %s: %w", eventType, err)
	}

	return payload, nil
}
