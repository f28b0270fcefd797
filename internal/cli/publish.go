package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/straywatch/straywatch/internal/detector"
)

var (
	publishFile     string
	publishInterval time.Duration
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Replay recorded detection frames onto the MQTT topic",
	Long: `Publish every frame of a recorded JSONL detections file to the configured
MQTT topic, pausing between frames. Use it to drive "record --source mqtt"
without a camera.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if publishFile == "" {
			return fmt.Errorf("--file is required")
		}

		pub, err := detector.ConnectPublisher(Config.MQTT, publishInterval, Logger)
		if err != nil {
			return err
		}
		defer pub.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		n, err := pub.Run(ctx, detector.NewReplaySource(publishFile, ""))
		fmt.Fprintf(cmd.OutOrStdout(), "Published %d frame(s) to %s\n", n, Config.MQTT.Topic)
		if err != nil {
			return fmt.Errorf("publishing frames: %w", err)
		}
		return nil
	},
}

func init() {
	publishCmd.Flags().StringVar(&publishFile, "file", "", "JSONL file of detection frames")
	publishCmd.Flags().DurationVar(&publishInterval, "interval", 500*time.Millisecond, "pause between frames")
	rootCmd.AddCommand(publishCmd)
}
