// Tuya-strip controls a Tuya-protocol 3-outlet smart power strip over
// the local network.
//
// Credentials (device id, IP, local key) are read from a key=value
// configuration file, searched in the current directory, the user's
// home, and a system-wide location, with environment variables as the
// final fallback. Run 'tuya-strip setup' to create the file
// interactively.
//
// See 'tuya-strip --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tuyastrip/internal/logging"
	"tuyastrip/internal/version"
)

func main() {
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tuya-strip",
	Short: "Control a Tuya 3-way power strip over LAN",
	Long: `Control a Tuya-protocol smart power strip on the local network.

Commands talk directly to the device over TCP using its local key;
no cloud account or internet access is required. Device credentials
are read from a configuration file created by 'tuya-strip setup'.`,
	Version: version.Version,
	Example: `  # Configure device credentials
  tuya-strip setup

  # Turn the second plug on
  tuya-strip on 2

  # Show switch states and energy readings
  tuya-strip status

  # Slow network: longer timeout, more retries
  tuya-strip --timeout 30 --retries 5 status`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		_ = cmd.Help()
		return fmt.Errorf("no command specified")
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceErrors = true

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// Silent by default; set TUYA_STRIP_LOG_LEVEL=debug for details
		_ = logging.InitializeFromEnv()
	}

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tuya-strip %s (commit: %s)\n", version.Version, version.Commit)
	},
}
