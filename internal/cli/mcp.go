package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	swmcp "github.com/straywatch/straywatch/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the straywatch MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the straywatch MCP server on stdio",
	Long: `Start the straywatch MCP server on stdio transport.

The server exposes the dashboard as MCP tools that AI assistants can call:
get_summary, get_alert, list_detections, get_metrics. Each call that reads
the observation log is one poll of a single viewing session, so get_alert
reports urgent when the count changed since the previous call.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := newView(Logger)
		if err != nil {
			return err
		}

		srv := swmcp.NewServer(view, Metrics, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
