// Package core contains the business logic for straywatch: the observation
// recorder, snapshot aggregation and tier classification, poll-to-poll
// change detection, alert classification, and configuration loading.
package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/straywatch/straywatch/pkg/models"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the base name of the YAML config file. Viper appends
// the .yaml extension when searching.
const ConfigFileName = ".straywatch"

// Poll interval bounds accepted by validation.
const (
	MinPollInterval = time.Second
	MaxPollInterval = 5 * time.Minute
)

// ConfigurationManager loads and validates straywatch configuration.
type ConfigurationManager interface {
	LoadConfig() (*models.Config, error)
	ValidateConfig(cfg *models.Config) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading the YAML configuration file and STRAYWATCH_* overrides.
type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// .straywatch.yaml from basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *models.Config {
	return &models.Config{
		Store: models.StoreConfig{
			Kind: models.StoreCSV,
			Path: "dog_counts.csv",
			Kafka: models.KafkaConfig{
				Brokers: []string{"localhost:9092"},
				Topic:   "dog-counts",
			},
		},
		Detector: models.DetectorConfig{
			TargetLabel:   "dog",
			MinConfidence: 0.4,
			FrameSkip:     2,
			SourceLabel:   models.SourceWebcam,
		},
		MQTT: models.MQTTConfig{
			Broker:   "tcp://localhost:1883",
			Topic:    "straywatch/detections",
			ClientID: "straywatch-recorder",
		},
		View: models.ViewConfig{
			PollInterval: 10 * time.Second,
			TableLimit:   50,
		},
		HTTP: models.HTTPConfig{Addr: ":8080"},
		Log:  models.LogConfig{Level: "info"},
	}
}

// LoadConfig reads .straywatch.yaml from the base path. Missing keys fall
// back to defaults and a missing file yields the defaults.
func (cm *viperConfigManager) LoadConfig() (*models.Config, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)
	v.SetEnvPrefix("STRAYWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.kind", string(def.Store.Kind))
	v.SetDefault("store.path", def.Store.Path)
	v.SetDefault("store.url", def.Store.URL)
	v.SetDefault("store.kafka.brokers", def.Store.Kafka.Brokers)
	v.SetDefault("store.kafka.topic", def.Store.Kafka.Topic)
	v.SetDefault("detector.target_label", def.Detector.TargetLabel)
	v.SetDefault("detector.min_confidence", def.Detector.MinConfidence)
	v.SetDefault("detector.frame_skip", def.Detector.FrameSkip)
	v.SetDefault("detector.source_label", def.Detector.SourceLabel)
	v.SetDefault("mqtt.broker", def.MQTT.Broker)
	v.SetDefault("mqtt.topic", def.MQTT.Topic)
	v.SetDefault("mqtt.client_id", def.MQTT.ClientID)
	v.SetDefault("view.poll_interval", def.View.PollInterval)
	v.SetDefault("view.table_limit", def.View.TableLimit)
	v.SetDefault("http.addr", def.HTTP.Addr)
	v.SetDefault("notifications.enabled", def.Notifications.Enabled)
	v.SetDefault("notifications.slack.webhook_url", def.Notifications.Slack.WebhookURL)
	v.SetDefault("log.level", def.Log.Level)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading %s.yaml: %w", ConfigFileName, err)
		}
	}

	cfg := &models.Config{
		Store: models.StoreConfig{
			Kind: models.StoreKind(strings.ToLower(v.GetString("store.kind"))),
			Path: v.GetString("store.path"),
			URL:  v.GetString("store.url"),
			Kafka: models.KafkaConfig{
				Brokers: v.GetStringSlice("store.kafka.brokers"),
				Topic:   v.GetString("store.kafka.topic"),
			},
		},
		Detector: models.DetectorConfig{
			TargetLabel:   v.GetString("detector.target_label"),
			MinConfidence: v.GetFloat64("detector.min_confidence"),
			FrameSkip:     v.GetInt("detector.frame_skip"),
			SourceLabel:   v.GetString("detector.source_label"),
		},
		MQTT: models.MQTTConfig{
			Broker:   v.GetString("mqtt.broker"),
			Topic:    v.GetString("mqtt.topic"),
			ClientID: v.GetString("mqtt.client_id"),
		},
		View: models.ViewConfig{
			PollInterval: v.GetDuration("view.poll_interval"),
			TableLimit:   v.GetInt("view.table_limit"),
		},
		HTTP: models.HTTPConfig{Addr: v.GetString("http.addr")},
		Notifications: models.NotificationConfig{
			Enabled: v.GetBool("notifications.enabled"),
			Slack:   models.SlackConfig{WebhookURL: v.GetString("notifications.slack.webhook_url")},
		},
		Log: models.LogConfig{Level: v.GetString("log.level")},
	}
	return cfg, nil
}

var validStoreKinds = map[models.StoreKind]bool{
	models.StoreJSONL:   true,
	models.StoreCSV:     true,
	models.StoreHTTPCSV: true,
	models.StoreKafka:   true,
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// ValidateConfig checks cfg for invalid values and reports every problem in
// a single error.
func (cm *viperConfigManager) ValidateConfig(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if !validStoreKinds[cfg.Store.Kind] {
		errs = append(errs, fmt.Sprintf("store.kind %q is invalid, must be one of: jsonl, csv, httpcsv, kafka", cfg.Store.Kind))
	}
	switch cfg.Store.Kind {
	case models.StoreJSONL, models.StoreCSV:
		if cfg.Store.Path == "" {
			errs = append(errs, "store.path must not be empty")
		}
	case models.StoreHTTPCSV:
		if u, err := url.Parse(cfg.Store.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("store.url %q must be an absolute URL", cfg.Store.URL))
		}
	case models.StoreKafka:
		if len(cfg.Store.Kafka.Brokers) == 0 {
			errs = append(errs, "store.kafka.brokers must not be empty")
		}
		if cfg.Store.Kafka.Topic == "" {
			errs = append(errs, "store.kafka.topic must not be empty")
		}
	}

	if strings.TrimSpace(cfg.Detector.TargetLabel) == "" {
		errs = append(errs, "detector.target_label must not be empty")
	}
	if cfg.Detector.MinConfidence < 0 || cfg.Detector.MinConfidence > 1 {
		errs = append(errs, fmt.Sprintf("detector.min_confidence %g must be between 0 and 1", cfg.Detector.MinConfidence))
	}
	if cfg.Detector.FrameSkip < 1 {
		errs = append(errs, fmt.Sprintf("detector.frame_skip must be at least 1, got %d", cfg.Detector.FrameSkip))
	}

	if cfg.View.PollInterval < MinPollInterval || cfg.View.PollInterval > MaxPollInterval {
		errs = append(errs, fmt.Sprintf("view.poll_interval %s must be between %s and %s", cfg.View.PollInterval, MinPollInterval, MaxPollInterval))
	}
	if cfg.View.TableLimit < 0 {
		errs = append(errs, fmt.Sprintf("view.table_limit must be non-negative, got %d", cfg.View.TableLimit))
	}

	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL == "" {
		errs = append(errs, "notifications.slack.webhook_url is required when notifications are enabled")
	}

	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level %q is invalid, must be one of: debug, info, warn, error", cfg.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// MarshalConfig renders cfg as YAML suitable for .straywatch.yaml.
func MarshalConfig(cfg *models.Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshalling config: %w", err)
	}
	return data, nil
}
