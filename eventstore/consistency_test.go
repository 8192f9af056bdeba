package eventstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/probelab/assesscore/eventstore"
)

func Test_GetConsistencyLevel_DefaultsToStrong(t *testing.T) {
	// act
	level := eventstore.GetConsistencyLevel(context.Background())

	// assert
	assert.Equal(t, eventstore.StrongConsistency, level)
}

func Test_GetConsistencyLevel_ReadsBackWhatWasSet(t *testing.T) {
	// arrange
	ctx := eventstore.WithEventualConsistency(context.Background())

	// act + assert
	assert.Equal(t, eventstore.EventualConsistency, eventstore.GetConsistencyLevel(ctx))
	assert.Equal(t, eventstore.StrongConsistency, eventstore.GetConsistencyLevel(eventstore.WithStrongConsistency(ctx)))
}

func Test_ConsistencyLevel_String(t *testing.T) {
	assert.Equal(t, "strong", eventstore.StrongConsistency.String())
	assert.Equal(t, "eventual", eventstore.EventualConsistency.String())
	assert.Equal(t, "unknown", eventstore.ConsistencyLevel(42).String())
}
