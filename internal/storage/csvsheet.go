package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/straywatch/straywatch/pkg/models"
)

// sheetHeader is the first record of every CSV sheet written by straywatch.
var sheetHeader = []string{models.ColumnTimestamp, models.ColumnCount, models.ColumnSource}

// csvSheet implements ObservationLog as a CSV file with a header row, the
// same shape as the shared spreadsheet the dashboards poll.
type csvSheet struct {
	path string
	loc  *time.Location
	mu   sync.Mutex
}

// NewCSVSheet returns an ObservationLog backed by the CSV file at path.
// The header row is written on the first append. Timestamps are written
// without a zone in loc, which readers must decode in the same location;
// nil means time.Local, the default of core.DecodeRows.
func NewCSVSheet(path string, loc *time.Location) (ObservationLog, error) {
	if path == "" {
		return nil, fmt.Errorf("csv sheet path must not be empty")
	}
	if loc == nil {
		loc = time.Local
	}
	return &csvSheet{path: path, loc: loc}, nil
}

// Append adds one record to the end of the sheet.
func (s *csvSheet) Append(_ context.Context, obs models.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening csv sheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	// Another recorder may share the sheet; the header check and the
	// record write happen under one lock.
	unlock, err := lockExclusive(f)
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat csv sheet: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(sheetHeader); err != nil {
			return fmt.Errorf("writing csv header: %w", err)
		}
	}
	if err := w.Write(obs.Record(s.loc)); err != nil {
		return fmt.Errorf("writing csv record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing csv sheet: %w", err)
	}
	return nil
}

// ReadAll returns every data row keyed by the header. A missing file reads
// as an empty sheet.
func (s *csvSheet) ReadAll(_ context.Context) ([]models.Row, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening csv sheet for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := readCSVRows(f)
	if err != nil {
		return nil, fmt.Errorf("reading csv sheet %s: %w", s.path, err)
	}
	return rows, nil
}

// Close is a no-op; the file is opened per operation.
func (s *csvSheet) Close() error {
	return nil
}

// readCSVRows parses CSV with a header record into rows. Short records
// leave the missing columns empty.
func readCSVRows(r io.Reader) ([]models.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	var rows []models.Row
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading record: %w", err)
		}
		row := make(models.Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
