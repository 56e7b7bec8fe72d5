package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var telemetryCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "Fetch the most recently published telemetry points",
	RunE: func(cmd *cobra.Command, args []string) error {
		points, err := client().FetchTelemetry(context.Background())
		if err != nil {
			exitWithError("failed to fetch telemetry", err)
		}
		out, err := json.MarshalIndent(points, "", "  ")
		if err != nil {
			exitWithError("failed to format telemetry", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(telemetryCmd)
}
