package command_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/assesscore/command"
	"github.com/probelab/assesscore/eventstore/memoryengine"
	"github.com/probelab/assesscore/projection"
)

type poolRig struct {
	handler  *command.LicensePoolHandler
	stores   projection.Stores
	tenantID string
}

func newPoolRig(t *testing.T) *poolRig {
	t.Helper()

	stores := newProjectionStores()
	handler, err := command.NewLicensePoolHandler(
		memoryengine.NewEventStore(), stores,
		command.WithRetry(command.WithBaseDelay(time.Millisecond)),
	)
	require.NoError(t, err)

	return &poolRig{handler: handler, stores: stores, tenantID: uuid.NewString()}
}

func Test_LicensePoolHandler_ConsumeUntilDepleted(t *testing.T) {
	// arrange - 5 licenses with the warning threshold also at 5, so the pool
	// warns from the start
	rig := newPoolRig(t)
	ctx := context.Background()

	poolID, err := rig.handler.CreateLicensePool(ctx, command.CreateLicensePoolCommand{
		TenantID:         rig.tenantID,
		ProductID:        uuid.NewString(),
		InitialLicenses:  5,
		WarningThreshold: 5,
	})
	require.NoError(t, err)

	doc, err := rig.stores.LicensePools.GetLicensePool(ctx, poolID, rig.tenantID)
	require.NoError(t, err)
	assert.True(t, doc.Warning)
	assert.False(t, doc.Depleted)

	// act - consume all five
	for i := 0; i < 5; i++ {
		require.NoError(t, rig.handler.ConsumeLicense(ctx, command.ConsumeLicenseCommand{
			PoolID: poolID, TenantID: rig.tenantID, SessionID: uuid.NewString(),
		}))
	}

	// assert
	doc, err = rig.stores.LicensePools.GetLicensePool(ctx, poolID, rig.tenantID)
	assert.NoError(t, err)
	assert.Equal(t, 0, doc.Available)
	assert.True(t, doc.Depleted)

	err = rig.handler.ConsumeLicense(ctx, command.ConsumeLicenseCommand{
		PoolID: poolID, TenantID: rig.tenantID, SessionID: uuid.NewString(),
	})
	assert.ErrorContains(t, err, "No licenses available")
}

func Test_LicensePoolHandler_AddAndRelease(t *testing.T) {
	// arrange
	rig := newPoolRig(t)
	ctx := context.Background()

	poolID, err := rig.handler.CreateLicensePool(ctx, command.CreateLicensePoolCommand{
		TenantID:         rig.tenantID,
		ProductID:        uuid.NewString(),
		InitialLicenses:  1,
		WarningThreshold: 0,
	})
	require.NoError(t, err)

	sessionID := uuid.NewString()
	require.NoError(t, rig.handler.ConsumeLicense(ctx, command.ConsumeLicenseCommand{
		PoolID: poolID, TenantID: rig.tenantID, SessionID: sessionID,
	}))

	// act - release the consumed license and top the pool up
	require.NoError(t, rig.handler.ReleaseLicense(ctx, command.ReleaseLicenseCommand{
		PoolID: poolID, TenantID: rig.tenantID, SessionID: sessionID, Reason: "session creation failed",
	}))
	require.NoError(t, rig.handler.AddLicenses(ctx, command.AddLicensesCommand{
		PoolID: poolID, TenantID: rig.tenantID, Count: 9, Reason: "annual top-up",
	}))

	// assert
	doc, err := rig.stores.LicensePools.GetLicensePool(ctx, poolID, rig.tenantID)
	assert.NoError(t, err)
	assert.Equal(t, 10, doc.Total)
	assert.Equal(t, 0, doc.Consumed)
	assert.Equal(t, 10, doc.Available)
	assert.False(t, doc.Warning)
}

func Test_LicensePoolHandler_WarningOnlyListing(t *testing.T) {
	// arrange
	rig := newPoolRig(t)
	ctx := context.Background()

	healthyID, err := rig.handler.CreateLicensePool(ctx, command.CreateLicensePoolCommand{
		TenantID: rig.tenantID, ProductID: uuid.NewString(), InitialLicenses: 100, WarningThreshold: 5,
	})
	require.NoError(t, err)

	lowID, err := rig.handler.CreateLicensePool(ctx, command.CreateLicensePoolCommand{
		TenantID: rig.tenantID, ProductID: uuid.NewString(), InitialLicenses: 3, WarningThreshold: 5,
	})
	require.NoError(t, err)

	// act
	lowPools, err := rig.stores.LicensePools.ListLicensePools(ctx, rig.tenantID, projection.LicensePoolFilter{WarningOnly: true})

	// assert
	assert.NoError(t, err)
	require.Len(t, lowPools, 1)
	assert.Equal(t, lowID, lowPools[0].PoolID)
	assert.NotEqual(t, healthyID, lowPools[0].PoolID)
}
