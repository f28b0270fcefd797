package core

import (
	"errors"
	"testing"
	"time"

	"github.com/straywatch/straywatch/pkg/models"
)

func TestDecodeRows_ParsesSpreadsheetRows(t *testing.T) {
	rows := []models.Row{
		{"Timestamp": "2025-06-10 14:00:00", "Dog Count": "0", "Source": "Live Webcam"},
		{"Timestamp": "2025-06-10 14:00:05", "Dog Count": "2", "Source": "Live Webcam"},
	}

	obs, skipped, err := DecodeRows(rows, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("expected no skipped rows, got %d", len(skipped))
	}
	if len(obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(obs))
	}
	if obs[1].Count != 2 || obs[1].Source != "Live Webcam" {
		t.Errorf("unexpected observation %+v", obs[1])
	}
	want := time.Date(2025, 6, 10, 14, 0, 5, 0, time.UTC)
	if !obs[1].Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", obs[1].Timestamp, want)
	}
}

func TestDecodeRows_TrimsColumnNames(t *testing.T) {
	rows := []models.Row{{" Timestamp ": "2025-06-10T14:00:00Z", "Dog Count  ": " 3 "}}

	obs, _, err := DecodeRows(rows, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(obs) != 1 || obs[0].Count != 3 {
		t.Fatalf("unexpected observations %+v", obs)
	}
}

func TestDecodeRows_MissingColumn(t *testing.T) {
	rows := []models.Row{{"Timestamp": "2025-06-10 14:00:00", "Count": "1"}}

	_, _, err := DecodeRows(rows, time.UTC)
	var mf *MissingFieldError
	if !errors.As(err, &mf) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	if mf.Field != models.ColumnCount {
		t.Errorf("Field = %q, want %q", mf.Field, models.ColumnCount)
	}
}

func TestDecodeRows_SkipsMalformedRows(t *testing.T) {
	rows := []models.Row{
		{"Timestamp": "yesterday", "Dog Count": "1"},
		{"Timestamp": "2025-06-10 14:00:00", "Dog Count": "many"},
		{"Timestamp": "2025-06-10 14:00:01", "Dog Count": "-2"},
		{"Timestamp": "2025-06-10 14:00:02", "Dog Count": "4.0"},
		{"Timestamp": "", "Dog Count": "1"},
	}

	obs, skipped, err := DecodeRows(rows, time.UTC)
	if err != nil {
		t.Fatalf("malformed rows must not fail the snapshot: %v", err)
	}
	if len(obs) != 1 || obs[0].Count != 4 {
		t.Fatalf("expected only the 4.0 row to survive, got %+v", obs)
	}
	if len(skipped) != 4 {
		t.Fatalf("expected 4 skipped rows, got %d", len(skipped))
	}
	if skipped[0].Index != 0 || skipped[0].Field != models.ColumnTimestamp {
		t.Errorf("unexpected first skip %+v", skipped[0])
	}
	if skipped[1].Field != models.ColumnCount || skipped[1].Value != "many" {
		t.Errorf("unexpected second skip %+v", skipped[1])
	}
}

func TestDecodeRows_Empty(t *testing.T) {
	obs, skipped, err := DecodeRows(nil, time.UTC)
	if err != nil || len(obs) != 0 || len(skipped) != 0 {
		t.Fatalf("expected empty result, got %v %v %v", obs, skipped, err)
	}
}

func TestDecodeRows_ObservationRowRoundTrip(t *testing.T) {
	in := models.Observation{Timestamp: time.Date(2025, 6, 10, 14, 0, 0, 123, time.UTC), Count: 5, Source: models.SourceUploaded}

	obs, _, err := DecodeRows([]models.Row{in.Row()}, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(obs) != 1 || !obs[0].Timestamp.Equal(in.Timestamp) || obs[0].Count != 5 || obs[0].Source != in.Source {
		t.Errorf("round trip mismatch: %+v", obs)
	}
}
