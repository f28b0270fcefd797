package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/straywatch/straywatch/internal/core"
	"github.com/straywatch/straywatch/pkg/models"
)

var summaryJSON bool

type summaryOutput struct {
	Store        string              `json:"store"`
	HasData      bool                `json:"has_data"`
	Latest       *models.Observation `json:"latest,omitempty"`
	MaxCount     int                 `json:"max_count"`
	Total        int                 `json:"total"`
	Observations int                 `json:"observations"`
	Tier         core.Tier           `json:"tier,omitempty"`
	Alert        core.AlertState     `json:"alert"`
	Message      string              `json:"message"`
	Skipped      []string            `json:"skipped,omitempty"`
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the latest, max and total dog counts",
	Long: `Poll the observation log once and print the latest count, the maximum, the
running total, the environment status tier and the alert banner.

Tiers: 0 Safe, 1 Caution, 2 Critical, 3 or more Danger.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		out := summaryOutput{
			Store:   describeStore(Config.Store),
			HasData: frame.HasData,
			Alert:   frame.Alert,
			Message: frame.Message,
		}
		if frame.HasData {
			latest := frame.Summary.Latest
			out.Latest = &latest
			out.MaxCount = frame.Summary.MaxCount
			out.Total = frame.Summary.Total
			out.Observations = frame.Summary.Observations
			out.Tier = frame.Summary.Tier
		}
		for _, s := range frame.Skipped {
			out.Skipped = append(out.Skipped, s.Error())
		}

		if summaryJSON {
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting summary as JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		printSummary(cmd.OutOrStdout(), out)
		return nil
	},
}

func printSummary(w io.Writer, s summaryOutput) {
	fmt.Fprintf(w, "Observation log: %s\n\n", s.Store)
	if !s.HasData {
		fmt.Fprintln(w, s.Message)
		return
	}
	fmt.Fprintf(w, "  %-22s %d\n", "Total dogs counted:", s.Total)
	fmt.Fprintf(w, "  %-22s %d\n", "Current dog count:", s.Latest.Count)
	fmt.Fprintf(w, "  %-22s %d\n", "Max dogs detected:", s.MaxCount)
	fmt.Fprintf(w, "  %-22s %d\n", "Records:", s.Observations)
	fmt.Fprintf(w, "  %-22s %s\n", "Environment status:", s.Tier)
	fmt.Fprintf(w, "\n%s\n", s.Message)
	if len(s.Skipped) > 0 {
		fmt.Fprintf(w, "\n%d malformed row(s) skipped:\n", len(s.Skipped))
		for _, msg := range s.Skipped {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}
}

func init() {
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(summaryCmd)
}
