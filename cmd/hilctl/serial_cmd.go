package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"icc.tech/hil-supervisor/internal/command"
	"icc.tech/hil-supervisor/internal/component"
)

var serialCmdCmd = &cobra.Command{
	Use:   "serial_cmd vcu subcomponent command",
	Short: "Send a SERIAL_CMD to a serial_line subcomponent",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		vcu, subcomponent, verb := args[0], args[1], args[2]
		resp, err := client().SendCommand(context.Background(), command.Envelope{
			Operation: int(component.SerialCmd),
			Target:    vcu + "." + subcomponent,
			Options:   map[string]interface{}{"command": verb},
		})
		if err != nil {
			exitWithError("serial_cmd failed", err)
		}
		fmt.Println(resp.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serialCmdCmd)
}
