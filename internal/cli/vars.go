package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/straywatch/straywatch/internal/core"
	"github.com/straywatch/straywatch/internal/observability"
	"github.com/straywatch/straywatch/internal/storage"
	"github.com/straywatch/straywatch/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath  string
	Config    *models.Config
	ConfigMgr core.ConfigurationManager
	Logger    *slog.Logger

	// Store is nil when the configured log could not be opened; StoreErr
	// then holds the reason.
	Store    storage.ObservationLog
	StoreErr error

	Metrics     *observability.Metrics
	AlertEngine observability.AlertEngine
	Notifier    observability.Notifier
)

func requireStore() error {
	if Store != nil {
		return nil
	}
	if StoreErr != nil {
		return fmt.Errorf("observation log unavailable: %w", StoreErr)
	}
	return fmt.Errorf("observation log not initialized")
}

func newView(logger *slog.Logger) (*core.View, error) {
	if err := requireStore(); err != nil {
		return nil, err
	}
	if Config == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return core.NewView(Store, core.ViewOptions{
		TableLimit: Config.View.TableLimit,
		Logger:     logger,
	}), nil
}

// describeStore renders the configured log location for headers.
func describeStore(cfg models.StoreConfig) string {
	switch cfg.Kind {
	case models.StoreHTTPCSV:
		return fmt.Sprintf("%s %s", cfg.Kind, cfg.URL)
	case models.StoreKafka:
		return fmt.Sprintf("%s %s/%s", cfg.Kind, strings.Join(cfg.Kafka.Brokers, ","), cfg.Kafka.Topic)
	default:
		return fmt.Sprintf("%s %s", cfg.Kind, cfg.Path)
	}
}
