package eventstore_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/assesscore/eventstore"
)

func Test_BuildStoredEvent_ValidatesStreamKeyAndJSON(t *testing.T) {
	occurredAt := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	validID := uuid.NewString()

	testCases := []struct {
		name          string
		eventID       string
		eventType     string
		aggregateID   string
		aggregateType string
		tenantID      string
		version       int64
		payloadJSON   []byte
		metadataJSON  []byte
		expectedErr   error
	}{
		{
			name:          "valid event",
			eventID:       validID,
			eventType:     "SessionCreated",
			aggregateID:   "session-1",
			aggregateType: "Session",
			tenantID:      "tenant-1",
			version:       1,
			payloadJSON:   []byte(`{"token":"abc"}`),
			metadataJSON:  []byte(`{}`),
			expectedErr:   nil,
		},
		{
			name:          "empty event id",
			eventID:       "",
			eventType:     "SessionCreated",
			aggregateID:   "session-1",
			aggregateType: "Session",
			tenantID:      "tenant-1",
			version:       1,
			payloadJSON:   []byte(`{}`),
			metadataJSON:  []byte(`{}`),
			expectedErr:   eventstore.ErrEmptyEventID,
		},
		{
			name:          "empty event type",
			eventID:       validID,
			eventType:     "",
			aggregateID:   "session-1",
			aggregateType: "Session",
			tenantID:      "tenant-1",
			version:       1,
			payloadJSON:   []byte(`{}`),
			metadataJSON:  []byte(`{}`),
			expectedErr:   eventstore.ErrEmptyEventType,
		},
		{
			name:          "empty aggregate id",
			eventID:       validID,
			eventType:     "SessionCreated",
			aggregateID:   "",
			aggregateType: "Session",
			tenantID:      "tenant-1",
			version:       1,
			payloadJSON:   []byte(`{}`),
			metadataJSON:  []byte(`{}`),
			expectedErr:   eventstore.ErrEmptyAggregateID,
		},
		{
			name:          "empty aggregate type",
			eventID:       validID,
			eventType:     "SessionCreated",
			aggregateID:   "session-1",
			aggregateType: "",
			tenantID:      "tenant-1",
			version:       1,
			payloadJSON:   []byte(`{}`),
			metadataJSON:  []byte(`{}`),
			expectedErr:   eventstore.ErrEmptyAggregateType,
		},
		{
			name:          "empty tenant id",
			eventID:       validID,
			eventType:     "SessionCreated",
			aggregateID:   "session-1",
			aggregateType: "Session",
			tenantID:      "",
			version:       1,
			payloadJSON:   []byte(`{}`),
			metadataJSON:  []byte(`{}`),
			expectedErr:   eventstore.ErrEmptyTenantID,
		},
		{
			name:          "zero version",
			eventID:       validID,
			eventType:     "SessionCreated",
			aggregateID:   "session-1",
			aggregateType: "Session",
			tenantID:      "tenant-1",
			version:       0,
			payloadJSON:   []byte(`{}`),
			metadataJSON:  []byte(`{}`),
			expectedErr:   eventstore.ErrNonPositiveVersion,
		},
		{
			name:          "invalid payload json",
			eventID:       validID,
			eventType:     "SessionCreated",
			aggregateID:   "session-1",
			aggregateType: "Session",
			tenantID:      "tenant-1",
			version:       1,
			payloadJSON:   []byte(`{"token":`),
			metadataJSON:  []byte(`{}`),
			expectedErr:   eventstore.ErrInvalidPayloadJSON,
		},
		{
			name:          "invalid metadata json",
			eventID:       validID,
			eventType:     "SessionCreated",
			aggregateID:   "session-1",
			aggregateType: "Session",
			tenantID:      "tenant-1",
			version:       1,
			payloadJSON:   []byte(`{}`),
			metadataJSON:  []byte(`not json`),
			expectedErr:   eventstore.ErrInvalidMetadataJSON,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			// act
			event, err := eventstore.BuildStoredEvent(
				testCase.eventID,
				testCase.eventType,
				testCase.aggregateID,
				testCase.aggregateType,
				testCase.tenantID,
				testCase.version,
				occurredAt,
				testCase.payloadJSON,
				testCase.metadataJSON,
			)

			// assert
			if testCase.expectedErr != nil {
				assert.ErrorIs(t, err, testCase.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, testCase.eventID, event.EventID)
			assert.Equal(t, testCase.version, event.Version)
			assert.Zero(t, event.GlobalSequence)
		})
	}
}

func Test_BuildStoredEventWithEmptyMetadata_SuppliesValidEmptyJSON(t *testing.T) {
	// act
	event, err := eventstore.BuildStoredEventWithEmptyMetadata(
		uuid.NewString(),
		"SessionCreated",
		"session-1",
		"Session",
		"tenant-1",
		1,
		time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC),
		[]byte(`{"token":"abc"}`),
	)

	// assert
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(event.MetadataJSON))
}
