package detector

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/straywatch/straywatch/internal/core"
	"github.com/straywatch/straywatch/internal/observability"
	"github.com/straywatch/straywatch/pkg/models"
)

// Source delivers detection frames. Stream sends frames on out until the
// feed ends or ctx is cancelled; it must not close out.
type Source interface {
	Stream(ctx context.Context, out chan<- models.DetectionFrame) error
	Label() string
}

// Options controls how frames are sampled and counted.
type Options struct {
	TargetLabel   string
	MinConfidence float64
	// FrameSkip processes every Nth received frame. Values below 2 process
	// every frame.
	FrameSkip int
	Now       func() time.Time
}

// OptionsFromConfig builds Options from the detector config section.
func OptionsFromConfig(cfg models.DetectorConfig) Options {
	return Options{
		TargetLabel:   cfg.TargetLabel,
		MinConfidence: cfg.MinConfidence,
		FrameSkip:     cfg.FrameSkip,
	}
}

// Session runs one detection session: it samples frames, counts matching
// detections, and hands every sampled count to the recorder.
type Session struct {
	opts     Options
	recorder *core.Recorder
	metrics  *observability.Metrics
	log      *slog.Logger
	received int
}

// NewSession creates a Session feeding rec. metrics and logger may be nil.
func NewSession(rec *core.Recorder, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{opts: opts, recorder: rec, metrics: metrics, log: logger}
}

// HandleFrame processes one received frame and reports whether it produced
// an appended observation. Skipped frames return false with no error.
func (s *Session) HandleFrame(ctx context.Context, frame models.DetectionFrame, source string) (bool, error) {
	s.received++
	if s.metrics != nil {
		s.metrics.FramesReceived.Add(1)
	}
	if s.opts.FrameSkip > 1 && s.received%s.opts.FrameSkip != 0 {
		return false, nil
	}
	if s.metrics != nil {
		s.metrics.FramesProcessed.Add(1)
	}

	count := CountMatching(frame.Detections, s.opts.TargetLabel, s.opts.MinConfidence)
	ts := frame.Timestamp
	if ts.IsZero() {
		ts = s.opts.Now()
	}

	_, appended, err := s.recorder.Observe(ctx, count, ts, source)
	if s.metrics != nil {
		s.metrics.CurrentCount.Store(int64(count))
		switch {
		case err != nil:
			s.metrics.AppendFailures.Add(1)
		case appended:
			s.metrics.ObservationsAppended.Add(1)
		}
	}
	return appended, err
}

// Run consumes src until it ends or ctx is cancelled. Append failures are
// logged and the session continues; the recorder retries on the next
// sampled frame. Cancellation is a normal end of session.
func (s *Session) Run(ctx context.Context, src Source) error {
	frames := make(chan models.DetectionFrame, 16)
	errc := make(chan error, 1)
	go func() {
		errc <- src.Stream(ctx, frames)
		close(frames)
	}()

	stats := s.recorder.Stats()
	s.log.Info("session_start", "session", stats.SessionID, "source", src.Label(),
		"target", s.opts.TargetLabel, "min_confidence", s.opts.MinConfidence, "frame_skip", s.opts.FrameSkip)

	for frame := range frames {
		if _, err := s.HandleFrame(ctx, frame, src.Label()); err != nil {
			s.log.Warn("frame_failed", "frame", frame.FrameNumber, "err", err)
		}
	}

	err := <-errc
	stats = s.recorder.Stats()
	s.log.Info("session_end", "session", stats.SessionID, "frames", s.received,
		"appended", stats.Appended, "failures", stats.AppendFailures, "max", stats.MaxCount)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stats returns the recorder statistics of this session.
func (s *Session) Stats() core.RecorderStats {
	return s.recorder.Stats()
}

// FramesReceived returns the number of frames received so far.
func (s *Session) FramesReceived() int {
	return s.received
}
