package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/straywatch/straywatch/pkg/models"
)

// Frame is the result of one poll cycle, ready for rendering.
type Frame struct {
	PolledAt   time.Time            `json:"polled_at"`
	HasData    bool                 `json:"has_data"`
	Summary    Summary              `json:"summary"`
	Alert      AlertState           `json:"alert"`
	Message    string               `json:"message"`
	Changed    bool                 `json:"changed"`
	SessionMax int                  `json:"session_max"`
	Series     []models.Observation `json:"series,omitempty"`
	Detected   []models.Observation `json:"detected,omitempty"`
	Skipped    []*MalformedRowError `json:"-"`
	Stale      bool                 `json:"stale"`
	Err        error                `json:"-"`
}

// ViewOptions tunes a View.
type ViewOptions struct {
	// TableLimit caps Frame.Detected. Zero means no cap.
	TableLimit int
	// Location is used for row timestamps without a zone.
	Location *time.Location
	Logger   *slog.Logger
	Now      func() time.Time
}

// View turns polled snapshots of the observation log into frames. A View
// holds the state of one viewing session and is not safe for concurrent
// use; the host drives Poll on its own schedule.
type View struct {
	reader  LogReader
	opts    ViewOptions
	changes *ChangeDetector
	maxSeen *int
	last    Frame
	polls   int
}

// NewView creates a View reading from reader.
func NewView(reader LogReader, opts ViewOptions) *View {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &View{
		reader:  reader,
		opts:    opts,
		changes: NewChangeDetector(),
	}
}

// Poll runs one read-snapshot-compute cycle. A failed read or a missing
// column keeps the previous frame's data, marks it stale, and sets Err.
func (v *View) Poll(ctx context.Context) Frame {
	return v.cycle(ctx, true)
}

// Peek reads and computes a frame like Poll but leaves the session's change
// detection and maximum untouched, so a change seen by Peek is still
// reported by the next Poll.
func (v *View) Peek(ctx context.Context) Frame {
	return v.cycle(ctx, false)
}

func (v *View) cycle(ctx context.Context, advance bool) Frame {
	v.polls++
	now := v.opts.Now()

	rows, err := v.reader.ReadAll(ctx)
	if err != nil {
		v.opts.Logger.Warn("poll_read_failed", "poll", v.polls, "err", err)
		return v.stale(now, wrapStoreErr("reading observation log", err))
	}

	snapshot, skipped, err := DecodeRows(rows, v.opts.Location)
	if err != nil {
		v.opts.Logger.Error("poll_decode_failed", "poll", v.polls, "err", err)
		return v.stale(now, err)
	}
	for _, s := range skipped {
		v.opts.Logger.Warn("row_skipped", "poll", v.polls, "row", s.Index, "field", s.Field, "value", s.Value)
	}

	frame := v.compute(snapshot, advance)
	frame.PolledAt = now
	frame.Skipped = skipped
	v.last = frame
	v.opts.Logger.Debug("poll_complete", "poll", v.polls, "rows", len(rows), "alert", frame.Alert, "advance", advance)
	return frame
}

// Compute builds a frame from an in-memory snapshot, advancing the
// session's change detection and maximum. It performs no I/O.
func (v *View) Compute(snapshot []models.Observation) Frame {
	return v.compute(snapshot, true)
}

func (v *View) compute(snapshot []models.Observation, advance bool) Frame {
	summary, err := Summarize(snapshot)
	if errors.Is(err, ErrEmptyLog) {
		frame := Frame{
			Alert:   AlertNoData,
			Message: AlertMessage(AlertNoData, models.Observation{}),
		}
		if v.maxSeen != nil {
			frame.SessionMax = *v.maxSeen
		}
		return frame
	}

	latest := summary.Latest.Count
	sessionMax := summary.MaxCount
	if v.maxSeen != nil && *v.maxSeen > sessionMax {
		sessionMax = *v.maxSeen
	}
	var changed bool
	if advance {
		changed = v.changes.Detect(latest)
		v.maxSeen = &sessionMax
	} else {
		changed = v.changes.Peek(latest)
	}

	alert := ClassifyAlert(true, latest, changed)
	return Frame{
		HasData:    true,
		Summary:    summary,
		Alert:      alert,
		Message:    AlertMessage(alert, summary.Latest),
		Changed:    changed,
		SessionMax: sessionMax,
		Series:     SortObservations(snapshot),
		Detected:   FilterMinCount(snapshot, 1, v.opts.TableLimit),
	}
}

// Last returns the most recent successful frame.
func (v *View) Last() Frame {
	return v.last
}

// Reset starts a new viewing session.
func (v *View) Reset() {
	v.changes.Reset()
	v.maxSeen = nil
	v.last = Frame{}
	v.polls = 0
}

func (v *View) stale(now time.Time, err error) Frame {
	frame := v.last
	frame.PolledAt = now
	frame.Stale = true
	frame.Err = err
	if !frame.HasData && frame.Alert == "" {
		frame.Alert = AlertNoData
		frame.Message = AlertMessage(AlertNoData, models.Observation{})
	}
	return frame
}
