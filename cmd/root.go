// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Pulse - symmetric UDP lifesign peer with latency measurement",
	Long: `Pulse is a symmetric UDP peer: two identical nodes exchange a framed,
CRC32-protected lifesign datagram at a fixed cadence while measuring
send/receive latency and arrival jitter at nanosecond resolution.

One node's destination is the other's source:

  node A: pulse start --src 10.0.0.1:5000 --dst 10.0.0.2:5000
  node B: pulse start --src 10.0.0.2:5000 --dst 10.0.0.1:5000`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (optional; defaults apply without one)")
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
