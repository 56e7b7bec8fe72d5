package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"icc.tech/hil-supervisor/internal/command"
	"icc.tech/hil-supervisor/internal/component"
)

// recognizedPSUCommands mirrors the PWR_SUPPLY_CMD verbs §6 recognizes;
// anything else is an unknown psu_set command and must exit non-zero.
var recognizedPSUCommands = map[string]bool{
	"set_voltage_channel1": true, "set_voltage_channel2": true,
	"set_current_channel1": true, "set_current_channel2": true,
	"set_output_channel1": true, "set_output_channel2": true,
	"set_defaults": true,
}

var psuSetCmd = &cobra.Command{
	Use:   "psu_set vcu subcomponent command [setpoint]",
	Short: "Send a PWR_SUPPLY_CMD to a power_supply subcomponent",
	Args:  cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		vcu, subcomponent, verb := args[0], args[1], args[2]
		if !recognizedPSUCommands[verb] {
			exitWithError(fmt.Sprintf("unknown psu_set command %q", verb), nil)
		}

		options := map[string]interface{}{"command": verb}
		if len(args) == 4 && verb != "set_defaults" {
			setpoint, err := parseSetpoint(args[3])
			if err != nil {
				exitWithError("invalid setpoint", err)
			}
			options["value"] = setpoint
		}

		resp, err := client().SendCommand(context.Background(), command.Envelope{
			Operation: int(component.PwrSupplyCmd),
			Target:    vcu + "." + subcomponent,
			Options:   options,
		})
		if err != nil {
			exitWithError("psu_set failed", err)
		}
		fmt.Println(resp.Status)
		return nil
	},
}

func parseSetpoint(s string) (interface{}, error) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b, nil
	}
	return nil, fmt.Errorf("setpoint %q is neither numeric nor boolean", s)
}

func init() {
	rootCmd.AddCommand(psuSetCmd)
}
