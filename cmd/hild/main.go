// Command hild is the supervisor daemon entrypoint (§1 "The
// command-line entry point, configuration file loading, logging setup").
// It is grounded on the teacher's cmd/root.go + cmd/daemon.go: a cobra
// root command carrying the shared --config flag, with a "serve"
// subcommand that starts the long-running process and blocks on signals.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"icc.tech/hil-supervisor/internal/daemon"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "hild",
	Short: "hild runs the HIL supervisor daemon",
	Long: `hild loads a static rig configuration, builds the Component tree for
every configured VCU, and runs the cycle engine and ingress servers until
terminated.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the supervisor in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		return daemon.RunUntilSignal(configFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c",
		"/etc/hil-supervisor/config.yml", "config file path")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
