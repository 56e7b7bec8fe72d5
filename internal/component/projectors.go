package component

import (
	"fmt"
	"time"

	"icc.tech/hil-supervisor/internal/telemetry"
)

// PowerSupplyProjector maps powersupply.Driver.ReadState's keys straight
// onto telemetry Points of the matching Kind (§4.4).
func PowerSupplyProjector(state map[string]interface{}, keeper *telemetry.Keeper) {
	now := time.Now()
	voltKeys := []string{"pri_meas_volt", "red_meas_volt", "pri_set_volt", "red_set_volt"}
	currKeys := []string{"pri_meas_curr", "red_meas_curr", "pri_set_curr", "red_set_curr"}
	boolKeys := []string{"pri_output_enable", "red_output_enable"}

	if v, ok := state["idn"].(string); ok {
		keeper.Channel("idn").Append(telemetry.String("idn", v, now))
	}
	for _, k := range voltKeys {
		if v, ok := state[k].(float64); ok {
			keeper.Channel(k).Append(telemetry.Unit(k, v, "volts", now))
		}
	}
	for _, k := range currKeys {
		if v, ok := state[k].(float64); ok {
			keeper.Channel(k).Append(telemetry.Unit(k, v, "amperes", now))
		}
	}
	for _, k := range boolKeys {
		if v, ok := state[k].(bool); ok {
			keeper.Channel(k).Append(telemetry.Boolean(k, v, now))
		}
	}
}

// SerialLineProjector reports connection facts only; serial lines have
// no structured query protocol (§4.4).
func SerialLineProjector(state map[string]interface{}, keeper *telemetry.Keeper) {
	now := time.Now()
	if v, ok := state["device"].(string); ok {
		keeper.Channel("device").Append(telemetry.String("device", v, now))
	}
	if v, ok := state["open"].(bool); ok {
		keeper.Channel("open").Append(telemetry.Boolean("open", v, now))
	}
}

// RemoteShellProjector reports the last command run over the shell, if
// any (§4.4).
func RemoteShellProjector(state map[string]interface{}, keeper *telemetry.Keeper) {
	if v, ok := state["last_command"].(string); ok && v != "" {
		keeper.Channel("last_command").Append(telemetry.String("last_command", v, time.Now()))
	}
}

// PowerSupplyInvokeMapper turns a PWR_SUPPLY_CMD Command's options into
// the verb/arg pair powersupply.Driver.Invoke expects (§6).
func PowerSupplyInvokeMapper(cmd Command) (string, interface{}, error) {
	verb, ok := cmd.Options["command"].(string)
	if !ok || verb == "" {
		return "", nil, fmt.Errorf("psu: missing command option")
	}
	if verb == "set_defaults" {
		return verb, nil, nil
	}
	return verb, cmd.Options["value"], nil
}

// SerialInvokeMapper turns a SERIAL_CMD Command's options into the raw
// line serialline.Driver.Invoke writes (§6).
func SerialInvokeMapper(cmd Command) (string, interface{}, error) {
	line, ok := cmd.Options["command"].(string)
	if !ok || line == "" {
		return "", nil, fmt.Errorf("serialline: missing command option")
	}
	return line, line, nil
}
