package core

import (
	"fmt"

	"github.com/straywatch/straywatch/pkg/models"
)

// AlertState is the alert presentation for one poll.
type AlertState string

const (
	AlertNoData        AlertState = "no_data"
	AlertNormal        AlertState = "normal"
	AlertInformational AlertState = "informational"
	AlertUrgent        AlertState = "urgent"
)

// ClassifyAlert derives the alert state from the inputs of a single poll.
// Urgent requires a count change since the previous poll; a steady non-zero
// count is only informational.
func ClassifyAlert(hasData bool, latest int, changed bool) AlertState {
	switch {
	case !hasData:
		return AlertNoData
	case latest <= 0:
		return AlertNormal
	case changed:
		return AlertUrgent
	default:
		return AlertInformational
	}
}

// AlertMessage renders the banner text for an alert state.
func AlertMessage(state AlertState, latest models.Observation) string {
	switch state {
	case AlertNoData:
		return "No dog detection data available yet."
	case AlertNormal:
		return "No dogs detected"
	case AlertUrgent:
		return fmt.Sprintf("Dog Detected: %d dog(s) at %s", latest.Count, latest.Timestamp.Format(models.RowTimeLayout))
	case AlertInformational:
		return fmt.Sprintf("%d dog(s) present since %s", latest.Count, latest.Timestamp.Format(models.RowTimeLayout))
	default:
		return ""
	}
}
