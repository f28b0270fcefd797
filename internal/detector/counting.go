// Package detector turns detector output into counts and feeds them to an
// observation recorder. Frames arrive from a Source: a live MQTT feed or a
// replayed JSONL recording.
package detector

import (
	"strings"

	"github.com/straywatch/straywatch/pkg/models"
)

// CountMatching returns the number of detections whose lowercased label
// contains target and whose confidence is at least minConfidence.
func CountMatching(dets []models.Detection, target string, minConfidence float64) int {
	target = strings.ToLower(target)
	n := 0
	for _, d := range dets {
		if d.Confidence < minConfidence {
			continue
		}
		if strings.Contains(strings.ToLower(d.Label), target) {
			n++
		}
	}
	return n
}
