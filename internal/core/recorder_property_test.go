package core

import (
	"context"
	"testing"
	"time"

	"github.com/straywatch/straywatch/pkg/models"
	"pgregory.net/rapid"
)

// countRuns returns the number of maximal runs of equal consecutive values.
func countRuns(counts []int) int {
	runs := 0
	for i, c := range counts {
		if i == 0 || counts[i-1] != c {
			runs++
		}
	}
	return runs
}

// TestProperty_RecorderAppendsOncePerRun verifies that the number of appended
// observations equals the number of runs of equal consecutive counts.
func TestProperty_RecorderAppendsOncePerRun(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		counts := rapid.SliceOf(rapid.IntRange(0, 6)).Draw(t, "counts")

		app := &fakeAppender{}
		r := NewRecorder(app, nil)
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, c := range counts {
			if _, _, err := r.Observe(context.Background(), c, base.Add(time.Duration(i)*time.Second), models.SourceWebcam); err != nil {
				t.Fatalf("observe: %v", err)
			}
		}

		if got, want := len(app.appended), countRuns(counts); got != want {
			t.Fatalf("appended %d observations for %v, want %d", got, counts, want)
		}
		for i := 1; i < len(app.appended); i++ {
			if app.appended[i].Count == app.appended[i-1].Count {
				t.Fatalf("consecutive appends share count %d", app.appended[i].Count)
			}
		}
	})
}

// TestProperty_RecorderRetriesUntilSuccess verifies that failures never
// advance the recorded count: every run is eventually appended exactly once
// no matter how many of its frames fail.
func TestProperty_RecorderRetriesUntilSuccess(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		counts := rapid.SliceOfN(rapid.IntRange(0, 4), 1, 40).Draw(t, "counts")
		failures := rapid.SliceOfN(rapid.Bool(), len(counts), len(counts)).Draw(t, "failures")

		app := &fakeAppender{err: ErrStore}
		r := NewRecorder(app, nil)
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

		for i, c := range counts {
			if failures[i] {
				app.failNext = 1
			}
			_, ok, err := r.Observe(context.Background(), c, base.Add(time.Duration(i)*time.Second), models.SourceWebcam)
			if err != nil && ok {
				t.Fatal("ok must be false when an error is returned")
			}
			app.failNext = 0
		}

		// Every appended observation differs from the previous appended one.
		for i := 1; i < len(app.appended); i++ {
			if app.appended[i].Count == app.appended[i-1].Count {
				t.Fatalf("duplicate consecutive append of count %d", app.appended[i].Count)
			}
		}
		if len(app.appended) > countRuns(counts) {
			t.Fatalf("appended %d observations, more than %d runs", len(app.appended), countRuns(counts))
		}
	})
}
