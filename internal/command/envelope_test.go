package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icc.tech/hil-supervisor/internal/command"
	"icc.tech/hil-supervisor/internal/component"
)

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := command.Decode([]byte(`{"cmd": `))
	assert.Error(t, err)
}

func TestToCommandAcceptsKnownDispatchableOperation(t *testing.T) {
	env := command.Envelope{Operation: int(component.PwrSupplyCmd), Target: "donatello.power_supply"}
	cmd, err := env.ToCommand()
	require.NoError(t, err)
	assert.Equal(t, component.PwrSupplyCmd, cmd.Operation)
	assert.Equal(t, "donatello.power_supply", cmd.Target)
}

func TestToCommandRejectsReservedOperation(t *testing.T) {
	env := command.Envelope{Operation: int(component.VersionCheck), Target: "donatello"}
	_, err := env.ToCommand()
	assert.Error(t, err)
}

func TestToCommandRejectsUnknownEnumValue(t *testing.T) {
	env := command.Envelope{Operation: 99, Target: "donatello"}
	_, err := env.ToCommand()
	assert.Error(t, err)
}

func TestToCommandRejectsMissingTarget(t *testing.T) {
	env := command.Envelope{Operation: int(component.Enable)}
	_, err := env.ToCommand()
	assert.Error(t, err)
}
