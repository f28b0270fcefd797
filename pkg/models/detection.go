package models

import "time"

// BoundingBox is a detector box in pixel coordinates.
type BoundingBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Detection is a single labelled box produced by the detector.
type Detection struct {
	Label      string      `json:"label"`
	Confidence float64     `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
}

// DetectionFrame is the detector output for one video frame.
type DetectionFrame struct {
	FrameNumber int         `json:"frame_number"`
	Timestamp   time.Time   `json:"timestamp"`
	Detections  []Detection `json:"detections"`
}
