package vcu_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icc.tech/hil-supervisor/internal/component"
	"icc.tech/hil-supervisor/internal/vcu"
)

func TestEnableMovesPowerOffToBooting(t *testing.T) {
	owner := component.New("donatello", component.KindVCU)
	v := vcu.New("donatello", owner, nil, nil, nil)
	require.Equal(t, vcu.StatePowerOff, v.State())

	err := v.OnCommandPending(context.Background(), component.Command{Operation: component.Enable}, true)
	require.NoError(t, err)
	assert.Equal(t, vcu.StateBooting, v.State())
}

func TestPowerOffRebuildsChildren(t *testing.T) {
	owner := component.New("donatello", component.KindVCU)
	rebuilt := component.New("power_supply", component.KindPowerSupply)
	builder := func() (map[string]*component.Component, error) {
		return map[string]*component.Component{"power_supply": rebuilt}, nil
	}
	v := vcu.New("donatello", owner, nil, nil, builder)

	err := v.OnCommandPending(context.Background(), component.Command{Operation: component.PowerOff}, true)
	require.NoError(t, err)
	assert.Equal(t, vcu.StatePowerOff, v.State())

	child, ok := owner.Child("power_supply")
	require.True(t, ok)
	assert.Same(t, rebuilt, child)
}

func TestBringOfflineDropsChildrenWithoutRebuild(t *testing.T) {
	owner := component.New("donatello", component.KindVCU)
	psu := component.New("power_supply", component.KindPowerSupply)
	owner.AdoptChild("power_supply", psu)
	v := vcu.New("donatello", owner, nil, nil, nil)

	err := v.OnCommandPending(context.Background(), component.Command{Operation: component.BringOffline}, true)
	require.NoError(t, err)
	assert.Equal(t, vcu.StateOffline, v.State())

	_, ok := owner.Child("power_supply")
	assert.False(t, ok)
}

func TestAncestorPendingMovesIdleToCommandThenBackOnComplete(t *testing.T) {
	owner := component.New("donatello", component.KindVCU)
	v := vcu.New("donatello", owner, nil, nil, nil)

	// Force into idle the way booting -> idle would via CheckState.
	require.NoError(t, v.OnCommandPending(context.Background(), component.Command{Operation: component.Enable}, true))
	require.NoError(t, v.OnCommandPending(context.Background(), component.Command{Operation: component.BootedForce}, true))
	require.Equal(t, vcu.StateIdle, v.State())

	err := v.OnCommandPending(context.Background(), component.Command{
		Operation: component.PwrSupplyCmd,
		Target:    "donatello.power_supply",
	}, false)
	require.NoError(t, err)
	assert.Equal(t, vcu.StateCommand, v.State())

	require.NoError(t, v.CommandComplete(context.Background()))
	assert.Equal(t, vcu.StateIdle, v.State())
}
