package component_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icc.tech/hil-supervisor/internal/component"
	"icc.tech/hil-supervisor/internal/telemetry"
)

func buildFixtureTree() *component.Component {
	root := component.New("root", component.KindRoot)
	vcu := component.New("donatello", component.KindVCU)
	psu := component.New("power_supply", component.KindPowerSupply)
	root.AdoptChild("donatello", vcu)
	vcu.AdoptChild("power_supply", psu)
	return root
}

func TestResolveFindsNestedTarget(t *testing.T) {
	root := buildFixtureTree()

	ancestors, terminal, err := root.Resolve("donatello.power_supply")
	require.NoError(t, err)
	assert.Equal(t, "power_supply", terminal.Name())
	require.Len(t, ancestors, 2)
	assert.Equal(t, "root", ancestors[0].Name())
	assert.Equal(t, "donatello", ancestors[1].Name())
}

func TestResolveVCUTargetHasNoDescendantAncestors(t *testing.T) {
	root := buildFixtureTree()

	ancestors, terminal, err := root.Resolve("donatello")
	require.NoError(t, err)
	assert.Equal(t, "donatello", terminal.Name())
	require.Len(t, ancestors, 1)
	assert.Equal(t, "root", ancestors[0].Name())
}

func TestResolveUnknownPathReturnsNotFound(t *testing.T) {
	root := buildFixtureTree()

	_, _, err := root.Resolve("donatello.missing_child")
	require.Error(t, err)
	var nf *component.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

type recordingHooks struct {
	pending  []bool
	complete int
	checked  int
}

func (h *recordingHooks) OnCommandPending(ctx context.Context, cmd component.Command, isTerminal bool) error {
	h.pending = append(h.pending, isTerminal)
	return nil
}
func (h *recordingHooks) CommandComplete(ctx context.Context) error { h.complete++; return nil }
func (h *recordingHooks) CheckState(ctx context.Context) error      { h.checked++; return nil }
func (h *recordingHooks) WriteTelemetry(ctx context.Context, keeper *telemetry.Keeper) {}

func TestDropChildRemovesFromOrderAndKeeper(t *testing.T) {
	root := buildFixtureTree()
	vcu, ok := root.Child("donatello")
	require.True(t, ok)

	vcu.DropChild("power_supply")
	_, ok = vcu.Child("power_supply")
	assert.False(t, ok)

	_, _, err := root.Resolve("donatello.power_supply")
	assert.Error(t, err)
}

func TestDispatchNotifiesAncestorsNotTerminal(t *testing.T) {
	root := buildFixtureTree()
	vcu, _ := root.Child("donatello")
	hooks := &recordingHooks{}
	vcu.SetHooks(hooks)

	tree := component.NewTree(root)
	notified, err := tree.Dispatch(context.Background(), component.Command{
		Operation: component.PwrSupplyCmd,
		Target:    "donatello.power_supply",
	})
	require.NoError(t, err)
	require.Len(t, notified, 1)
	assert.Equal(t, vcu, notified[0])
	require.Len(t, hooks.pending, 1)
	assert.False(t, hooks.pending[0])

	tree.CompleteCommands(context.Background(), notified)
	assert.Equal(t, 1, hooks.complete)
}

func TestDispatchNotifiesVCUAsTerminal(t *testing.T) {
	root := buildFixtureTree()
	vcu, _ := root.Child("donatello")
	hooks := &recordingHooks{}
	vcu.SetHooks(hooks)

	tree := component.NewTree(root)
	notified, err := tree.Dispatch(context.Background(), component.Command{
		Operation: component.PowerOff,
		Target:    "donatello",
	})
	require.NoError(t, err)
	assert.Empty(t, notified)
	require.Len(t, hooks.pending, 1)
	assert.True(t, hooks.pending[0])
}

func TestCheckStateVisitsEveryHookedComponent(t *testing.T) {
	root := buildFixtureTree()
	vcu, _ := root.Child("donatello")
	hooks := &recordingHooks{}
	vcu.SetHooks(hooks)

	component.NewTree(root).CheckState(context.Background())
	assert.Equal(t, 1, hooks.checked)
}
