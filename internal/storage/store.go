// Package storage provides the observation log backends: an append-only
// JSONL file, a CSV spreadsheet file, a published CSV URL (read-only), and a
// Kafka topic.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/straywatch/straywatch/pkg/models"
)

// ErrReadOnly is returned by Append on stores that cannot be written.
var ErrReadOnly = errors.New("observation log is read-only")

// ObservationLog is an append-only log of observations.
type ObservationLog interface {
	Append(ctx context.Context, obs models.Observation) error
	ReadAll(ctx context.Context) ([]models.Row, error)
	Close() error
}

// Open returns the ObservationLog selected by cfg. Relative file paths are
// resolved against basePath. client is used by the HTTP CSV store and may
// be nil.
func Open(cfg models.StoreConfig, basePath string, client *http.Client, logger *slog.Logger) (ObservationLog, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	path := cfg.Path
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(basePath, path)
	}

	switch cfg.Kind {
	case models.StoreJSONL:
		return NewJSONLObservationLog(path, logger)
	case models.StoreCSV:
		return NewCSVSheet(path, nil)
	case models.StoreHTTPCSV:
		return NewHTTPCSVSource(cfg.URL, client), nil
	case models.StoreKafka:
		return NewKafkaLog(cfg.Kafka, logger)
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}
