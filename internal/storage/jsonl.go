package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/straywatch/straywatch/pkg/models"
)

// jsonlObservationLog implements ObservationLog using an append-only JSONL file.
type jsonlObservationLog struct {
	path string
	file *os.File
	log  *slog.Logger
	mu   sync.Mutex
}

// NewJSONLObservationLog creates an ObservationLog backed by a JSONL file at
// the given path. The file is created if it does not exist. A nil logger
// discards warnings about malformed lines.
func NewJSONLObservationLog(path string, logger *slog.Logger) (ObservationLog, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening observation log: %w", err)
	}
	return &jsonlObservationLog{
		path: path,
		file: f,
		log:  logger,
	}, nil
}

// Append writes a JSON-encoded observation followed by a newline.
func (l *jsonlObservationLog) Append(_ context.Context, obs models.Observation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshalling observation: %w", err)
	}
	data = append(data, '\n')

	unlock, err := lockExclusive(l.file)
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("writing observation: %w", err)
	}
	return nil
}

// ReadAll scans the log file line by line and returns every observation as
// a row. Malformed lines are logged and skipped.
func (l *jsonlObservationLog) ReadAll(ctx context.Context) ([]models.Row, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening observation log for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var rows []models.Row
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var obs models.Observation
		if err := json.Unmarshal(line, &obs); err != nil {
			l.log.Warn("jsonl_invalid_line", "path", l.path, "line", lineNo, "err", err)
			continue
		}
		rows = append(rows, obs.Row())
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning observation log: %w", err)
	}
	return rows, nil
}

// Close closes the underlying log file.
func (l *jsonlObservationLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing observation log: %w", err)
	}
	return nil
}
