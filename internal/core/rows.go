package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/straywatch/straywatch/pkg/models"
)

// timestampLayouts are tried in order when parsing a row timestamp. The
// list covers what the stores write and what spreadsheet exports produce.
var timestampLayouts = []string{
	time.RFC3339Nano,
	models.RowTimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
}

var errNotInteger = errors.New("not a non-negative integer")

// DecodeRows converts untyped log rows into observations. Header keys are
// matched after trimming whitespace. A required column missing from every
// row fails the whole set with *MissingFieldError. Individual rows with an
// unparseable timestamp or count are skipped and reported. Timestamps
// without a zone are read in loc (time.Local when nil).
func DecodeRows(rows []models.Row, loc *time.Location) ([]models.Observation, []*MalformedRowError, error) {
	if len(rows) == 0 {
		return nil, nil, nil
	}
	if loc == nil {
		loc = time.Local
	}

	normalized := make([]models.Row, len(rows))
	seen := map[string]bool{}
	for i, row := range rows {
		n := make(models.Row, len(row))
		for k, v := range row {
			key := strings.TrimSpace(k)
			n[key] = v
			seen[key] = true
		}
		normalized[i] = n
	}
	for _, required := range []string{models.ColumnTimestamp, models.ColumnCount} {
		if !seen[required] {
			return nil, nil, &MissingFieldError{Field: required}
		}
	}

	var (
		out     = make([]models.Observation, 0, len(normalized))
		skipped []*MalformedRowError
	)
	for i, row := range normalized {
		rawTS := strings.TrimSpace(row[models.ColumnTimestamp])
		ts, err := parseTimestamp(rawTS, loc)
		if err != nil {
			skipped = append(skipped, &MalformedRowError{Index: i, Field: models.ColumnTimestamp, Value: rawTS, Err: err})
			continue
		}
		rawCount := strings.TrimSpace(row[models.ColumnCount])
		count, err := parseCount(rawCount)
		if err != nil {
			skipped = append(skipped, &MalformedRowError{Index: i, Field: models.ColumnCount, Value: rawCount, Err: err})
			continue
		}
		out = append(out, models.Observation{
			Timestamp: ts,
			Count:     count,
			Source:    strings.TrimSpace(row[models.ColumnSource]),
		})
	}
	return out, skipped, nil
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	var firstErr error
	for _, layout := range timestampLayouts {
		ts, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return ts, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// parseCount accepts integers and integral floats ("3.0"), which is how
// some spreadsheet exports render numeric cells.
func parseCount(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, errNotInteger
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, errNotInteger
	}
	return int(f), nil
}
