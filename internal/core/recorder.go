package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/straywatch/straywatch/pkg/models"
)

// RecorderStats is the live view of one detection session.
type RecorderStats struct {
	SessionID      string    `json:"session_id"`
	CurrentCount   int       `json:"current_count"`
	MaxCount       int       `json:"max_count"`
	LastDetection  time.Time `json:"last_detection"`
	CountsObserved int       `json:"counts_observed"`
	Appended       int       `json:"appended"`
	AppendFailures int       `json:"append_failures"`
}

// Recorder throttles writes to the observation log so that only changes in
// count are persisted. A Recorder belongs to a single detection session and
// is not safe for concurrent use.
type Recorder struct {
	log          LogAppender
	logger       *slog.Logger
	newID        func() string
	lastRecorded *int
	stats        RecorderStats
}

// NewRecorder creates a Recorder that appends accepted observations to log.
// A nil logger discards log output.
func NewRecorder(log LogAppender, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Recorder{
		log:    log,
		logger: logger,
		newID:  uuid.NewString,
	}
	r.Reset()
	return r
}

// Reset starts a new detection session with no recorded count.
func (r *Recorder) Reset() {
	r.lastRecorded = nil
	r.stats = RecorderStats{SessionID: r.newID()}
}

// Observe appends an observation when count differs from the last recorded
// count, or when nothing has been recorded yet in this session. It reports
// whether an observation was appended. On append failure the recorded count
// is left unchanged so that the next equal count retries.
func (r *Recorder) Observe(ctx context.Context, count int, ts time.Time, source string) (models.Observation, bool, error) {
	if count < 0 {
		return models.Observation{}, false, fmt.Errorf("observing count %d: %w", count, ErrNegativeCount)
	}

	r.stats.CountsObserved++
	r.stats.CurrentCount = count
	if count > r.stats.MaxCount {
		r.stats.MaxCount = count
	}
	if count > 0 {
		r.stats.LastDetection = ts
	}

	if r.lastRecorded != nil && *r.lastRecorded == count {
		return models.Observation{}, false, nil
	}

	obs := models.Observation{
		ID:        r.newID(),
		Timestamp: ts,
		Count:     count,
		Source:    source,
	}
	if err := r.log.Append(ctx, obs); err != nil {
		r.stats.AppendFailures++
		r.logger.Warn("append_failed", "session", r.stats.SessionID, "count", count, "err", err)
		return models.Observation{}, false, wrapStoreErr("appending observation", err)
	}

	recorded := count
	r.lastRecorded = &recorded
	r.stats.Appended++
	r.logger.Info("observation_recorded", "session", r.stats.SessionID, "count", count, "source", source)
	return obs, true, nil
}

// LastRecorded returns the last successfully recorded count, if any.
func (r *Recorder) LastRecorded() (int, bool) {
	if r.lastRecorded == nil {
		return 0, false
	}
	return *r.lastRecorded, true
}

// Stats returns the live statistics of the current session.
func (r *Recorder) Stats() RecorderStats {
	return r.stats
}
