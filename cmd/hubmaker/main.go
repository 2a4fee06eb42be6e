// Hubmaker is a command-line client for Hubitat Elevation hubs.
//
// It talks to a hub's local Maker API to list devices, read attributes,
// send commands, manage location modes, and watch live device events. Hub
// connection profiles are saved to a config file; access tokens are never
// stored and come from a flag, the environment, or an interactive prompt.
//
// Usage:
//
//	hubmaker [command] [flags]
//
// See 'hubmaker --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkerr/hubmaker/internal/logging"
	"github.com/mkerr/hubmaker/internal/version"
)

func main() {
	logging.InitializeFromEnv()
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hubmaker",
	Short: "Hubitat Elevation Maker API client",
	Long: `A command-line client for Hubitat Elevation hubs.

Talks to a hub's local Maker API to list devices, read attributes, send
commands, manage location modes, and watch live device events.

The Maker API app must be installed on the hub and the devices you want to
control must be exposed through it. The access token is taken from --token,
the HUBMAKER_TOKEN environment variable, or an interactive prompt.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hubmaker %s\n", version.Full())
	},
}
