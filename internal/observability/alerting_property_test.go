package observability

import (
	"testing"

	"pgregory.net/rapid"
)

// Feature: feed staleness alerting
// Property: one feed_unreachable alert per run of consecutive stale polls that
// reaches the threshold, regardless of how long the run lasts.
func TestProperty_FeedUnreachableOncePerRun(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		threshold := rapid.IntRange(1, 5).Draw(t, "threshold")
		stale := rapid.SliceOfN(rapid.Bool(), 0, 60).Draw(t, "stale")

		engine := NewAlertEngine(AlertThresholds{StalePolls: threshold})
		got := 0
		for _, s := range stale {
			frame := staleFrame()
			if !s {
				frame.Stale = false
				frame.Err = nil
			}
			for _, a := range engine.Evaluate(frame) {
				if a.Condition == ConditionFeedUnreachable {
					got++
				}
			}
		}

		want, run := 0, 0
		for _, s := range stale {
			if s {
				run++
				if run == threshold {
					want++
				}
			} else {
				run = 0
			}
		}
		if got != want {
			t.Fatalf("feed_unreachable alerts = %d, want %d for %v (threshold %d)", got, want, stale, threshold)
		}
	})
}
