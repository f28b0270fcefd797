package detector

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/straywatch/straywatch/pkg/models"
)

const maxReplayLine = 1 << 20

// ReplaySource streams a recorded detections file, one JSON DetectionFrame
// per line. It stands in for an uploaded video.
type ReplaySource struct {
	path  string
	label string
}

// NewReplaySource returns a Source reading the JSONL file at path. An empty
// label defaults to "uploaded file".
func NewReplaySource(path, label string) *ReplaySource {
	if label == "" {
		label = models.SourceUploaded
	}
	return &ReplaySource{path: path, label: label}
}

// Label returns the source label recorded with each observation.
func (r *ReplaySource) Label() string {
	return r.label
}

// Stream sends every frame in the file in order. Frames without a frame
// number are numbered by line.
func (r *ReplaySource) Stream(ctx context.Context, out chan<- models.DetectionFrame) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("opening replay file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxReplayLine)
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}

		var frame models.DetectionFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return fmt.Errorf("replay file %s line %d: %w", r.path, line, err)
		}
		if frame.FrameNumber == 0 {
			frame.FrameNumber = line
		}

		select {
		case out <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning replay file: %w", err)
	}
	return nil
}
