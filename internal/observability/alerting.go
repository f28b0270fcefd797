package observability

import (
	"fmt"
	"time"

	"github.com/straywatch/straywatch/internal/core"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// Alert conditions.
const (
	ConditionDogDetected     = "dog_detected"
	ConditionFeedUnreachable = "feed_unreachable"
	ConditionRowsSkipped     = "rows_skipped"
)

// AlertThresholds configures when alerts should fire.
type AlertThresholds struct {
	// StalePolls is the number of consecutive stale polls after which the
	// feed is reported unreachable.
	StalePolls int `yaml:"stale_polls" json:"stale_polls"`
	// SkippedRows is the number of malformed rows in one snapshot that
	// raises a warning. Zero disables the check.
	SkippedRows int `yaml:"skipped_rows" json:"skipped_rows"`
}

// DefaultAlertThresholds returns the default alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		StalePolls:  3,
		SkippedRows: 1,
	}
}

// AlertEngine turns poll frames into alerts. Each condition fires on its
// rising edge, so a steady state does not repeat the same alert.
type AlertEngine interface {
	Evaluate(frame core.Frame) []Alert
}

// alertEngine is fed by a single poll loop and is not safe for concurrent use.
type alertEngine struct {
	thresholds  AlertThresholds
	staleRun    int
	lastSkipped int
}

// NewAlertEngine creates a new AlertEngine with the given thresholds.
func NewAlertEngine(thresholds AlertThresholds) AlertEngine {
	return &alertEngine{thresholds: thresholds}
}

// Evaluate checks all alert conditions against one frame.
func (ae *alertEngine) Evaluate(frame core.Frame) []Alert {
	var alerts []Alert

	if frame.Stale {
		ae.staleRun++
		if ae.staleRun == ae.thresholds.StalePolls {
			alerts = append(alerts, ae.feedUnreachable(frame))
		}
		// Stale data never raises detection alerts.
		return alerts
	}
	ae.staleRun = 0

	if frame.Alert == core.AlertUrgent {
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("dog-%d", frame.Summary.Latest.Timestamp.Unix()),
			Condition:   ConditionDogDetected,
			Severity:    SeverityHigh,
			Message:     frame.Message,
			TriggeredAt: frame.PolledAt,
		})
	}

	skipped := len(frame.Skipped)
	if ae.thresholds.SkippedRows > 0 && skipped >= ae.thresholds.SkippedRows && skipped != ae.lastSkipped {
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("skipped-%d", skipped),
			Condition:   ConditionRowsSkipped,
			Severity:    SeverityLow,
			Message:     fmt.Sprintf("%d malformed row(s) skipped, first: %v", skipped, frame.Skipped[0]),
			TriggeredAt: frame.PolledAt,
		})
	}
	ae.lastSkipped = skipped

	return alerts
}

func (ae *alertEngine) feedUnreachable(frame core.Frame) Alert {
	msg := fmt.Sprintf("observation log unreadable for %d consecutive polls", ae.staleRun)
	if frame.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, frame.Err)
	}
	return Alert{
		ID:          fmt.Sprintf("stale-%d", frame.PolledAt.Unix()),
		Condition:   ConditionFeedUnreachable,
		Severity:    SeverityMedium,
		Message:     msg,
		TriggeredAt: frame.PolledAt,
	}
}
