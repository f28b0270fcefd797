package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/straywatch/straywatch/internal/core"
	"github.com/straywatch/straywatch/pkg/models"
)

var (
	detectionsMin   int
	detectionsLimit int
	detectionsJSON  bool
)

var detectionsCmd = &cobra.Command{
	Use:   "detections",
	Short: "List recorded detections, newest first",
	Long: `Poll the observation log once and list the records with at least --min
dogs, newest first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if detectionsMin < 0 {
			return fmt.Errorf("--min must be non-negative")
		}
		view, err := newView(Logger)
		if err != nil {
			return err
		}

		frame := view.Poll(cmd.Context())
		if frame.Stale {
			return fmt.Errorf("polling observation log: %w", frame.Err)
		}
		if Metrics != nil {
			Metrics.RecordPoll(frame)
		}

		rows := core.FilterMinCount(frame.Series, detectionsMin, detectionsLimit)
		if detectionsJSON {
			if rows == nil {
				rows = []models.Observation{}
			}
			data, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting detections as JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		printDetections(cmd.OutOrStdout(), rows, detectionsMin)
		return nil
	},
}

func printDetections(w io.Writer, rows []models.Observation, minCount int) {
	if len(rows) == 0 {
		fmt.Fprintf(w, "No records with Dog Count >= %d.\n", minCount)
		return
	}
	fmt.Fprintf(w, "%-20s %-10s %s\n", models.ColumnTimestamp, models.ColumnCount, models.ColumnSource)
	for _, o := range rows {
		fmt.Fprintf(w, "%-20s %-10d %s\n", o.Timestamp.Format(models.RowTimeLayout), o.Count, o.Source)
	}
}

func init() {
	detectionsCmd.Flags().IntVar(&detectionsMin, "min", 1, "minimum dog count to list")
	detectionsCmd.Flags().IntVar(&detectionsLimit, "limit", 0, "maximum number of rows (0 for all)")
	detectionsCmd.Flags().BoolVar(&detectionsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(detectionsCmd)
}
