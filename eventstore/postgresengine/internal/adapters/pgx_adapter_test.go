package adapters

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/assesscore/eventstore"
)

func Test_PGXAdapter_ReadPool_UsesReplicaOnlyForEventualConsistency(t *testing.T) {
	// arrange
	primary := givenLazyPool(t, "postgres://primary.internal:5432/assesscore")
	replica := givenLazyPool(t, "postgres://replica.internal:5432/assesscore")
	adapter := NewPGXAdapterWithReplica(primary, replica)

	// assert: the default (strong) level stays on the primary
	assert.Same(t, primary, adapter.readPool(context.Background()))
	assert.Same(t, primary, adapter.readPool(eventstore.WithStrongConsistency(context.Background())))

	// assert: eventual-consistency reads go to the replica
	assert.Same(t, replica, adapter.readPool(eventstore.WithEventualConsistency(context.Background())))
}

func Test_PGXAdapter_ReadPool_WithoutReplicaAlwaysUsesPrimary(t *testing.T) {
	// arrange
	primary := givenLazyPool(t, "postgres://primary.internal:5432/assesscore")
	adapter := NewPGXAdapter(primary)

	// assert
	assert.Same(t, primary, adapter.readPool(eventstore.WithEventualConsistency(context.Background())))
}

// givenLazyPool builds a pool without dialing; pgxpool only connects on demand.
func givenLazyPool(t *testing.T, dsn string) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}
