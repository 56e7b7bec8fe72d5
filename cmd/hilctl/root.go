// Command hilctl is the commanding client for a running hild instance
// (§6 "CLI surface"): `action vcu subcomponent command setpoint --host
// --cmd_port --telem_port`. It is grounded on the teacher's cmd/root.go
// + cmd/stats.go pattern (a cobra root command carrying shared
// connection flags, one subcommand per action), talking to the command
// socket and telemetry HTTP endpoint through internal/hilclient instead
// of the teacher's UDS JSON-RPC client.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"icc.tech/hil-supervisor/internal/hilclient"
)

var (
	host      string
	cmdPort   int
	telemPort int
)

var rootCmd = &cobra.Command{
	Use:   "hilctl",
	Short: "hilctl commands a running HIL supervisor",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&host, "host", "127.0.0.1", "supervisor host")
	rootCmd.PersistentFlags().IntVar(&cmdPort, "cmd_port", 9000, "command socket port")
	rootCmd.PersistentFlags().IntVar(&telemPort, "telem_port", 9001, "telemetry http port")
}

func client() *hilclient.Client {
	return hilclient.New(host, cmdPort, telemPort)
}

// exitWithError prints msg and terminates with a non-zero exit code
// (§7 "CLI: non-zero exit on unknown action or unknown psu_set command").
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// cobra has already printed usage; an unrecognized subcommand
		// (unknown action) lands here and must still exit non-zero.
		os.Exit(1)
	}
}
