package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"icc.tech/hil-supervisor/internal/command"
	"icc.tech/hil-supervisor/internal/component"
)

// vcuActionCmd builds a single-arg "action vcu" subcommand: target is the
// VCU's own path, no options, dispatched at the named Operation (§6).
func vcuActionCmd(use, short string, op component.Operation) *cobra.Command {
	return &cobra.Command{
		Use:   use + " vcu",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client().SendCommand(context.Background(), command.Envelope{
				Operation: int(op),
				Target:    args[0],
			})
			if err != nil {
				exitWithError(use+" failed", err)
			}
			fmt.Println(resp.Status)
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(
		vcuActionCmd("bring_offline", "Force a VCU offline", component.BringOffline),
		vcuActionCmd("power_off", "Power off a VCU", component.PowerOff),
		vcuActionCmd("enable", "Enable a VCU (power_off -> booting)", component.Enable),
		vcuActionCmd("force_booted", "Force a VCU's state to idle", component.BootedForce),
	)
}
