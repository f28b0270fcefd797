package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/straywatch/straywatch/internal/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API over HTTP",
	Long: `Poll the observation log on the configured interval and serve the latest
frame over HTTP:

  GET  /health             liveness
  GET  /api/frame          full frame: summary, alert, series, detections
  GET  /api/summary        latest, max and total counts with the tier
  GET  /api/alert          alert state and banner text
  GET  /api/observations   detections, newest first (?min=1&limit=N)
  POST /api/refresh        poll now
  GET  /metrics            Prometheus metrics

Raised alerts are sent to Slack when notifications are enabled.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := newView(Logger)
		if err != nil {
			return err
		}

		addr := serveAddr
		if addr == "" {
			addr = Config.HTTP.Addr
		}

		srv := httpapi.NewServer(view, httpapi.Options{
			Interval:  Config.View.PollInterval,
			Metrics:   Metrics,
			Alerts:    AlertEngine,
			Notifier:  Notifier,
			Logger:    Logger,
			AccessLog: os.Stderr,
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}
