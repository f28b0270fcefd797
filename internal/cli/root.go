package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "straywatch",
	Short: "Stray dog detection counts and live dashboards",
	Long: `straywatch counts dogs in detector output, records every change in the
count to an append-only observation log, and serves live views of that log:
current, max and total counts, an environment status tier, an alert banner,
a time-series chart and a table of detections.

The log can be a local JSONL or CSV file, a published CSV URL, or a Kafka
topic. Views are available as a terminal dashboard, an HTTP API and an MCP
server.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "straywatch %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
