package models

import (
	"strconv"
	"time"
)

// Column names of the tabular observation log. Rows read from a store are
// keyed by these headers.
const (
	ColumnTimestamp = "Timestamp"
	ColumnCount     = "Dog Count"
	ColumnSource    = "Source"
)

// RowTimeLayout is the timestamp layout written to tabular stores.
const RowTimeLayout = "2006-01-02 15:04:05"

// Source labels for the two capture sources.
const (
	SourceWebcam   = "webcam"
	SourceUploaded = "uploaded file"
)

// Observation is one timestamped count record in the observation log.
// Observations are never mutated once appended.
type Observation struct {
	ID        string    `json:"id,omitempty" yaml:"id,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Count     int       `json:"count" yaml:"count"`
	Source    string    `json:"source" yaml:"source"`
}

// Row is an untyped key/value mapping as read back from a log store.
type Row map[string]string

// Row renders the observation in the tabular column shape.
func (o Observation) Row() Row {
	return Row{
		ColumnTimestamp: o.Timestamp.Format(time.RFC3339Nano),
		ColumnCount:     strconv.Itoa(o.Count),
		ColumnSource:    o.Source,
	}
}

// Record renders the observation as a spreadsheet record in column order.
// RowTimeLayout carries no zone, so the timestamp is written in loc and must
// be read back in the same location. A nil loc means time.Local.
func (o Observation) Record(loc *time.Location) []string {
	if loc == nil {
		loc = time.Local
	}
	return []string{
		o.Timestamp.In(loc).Format(RowTimeLayout),
		strconv.Itoa(o.Count),
		o.Source,
	}
}
