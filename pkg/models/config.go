package models

import "time"

// StoreKind selects the observation log backend.
type StoreKind string

const (
	StoreJSONL   StoreKind = "jsonl"
	StoreCSV     StoreKind = "csv"
	StoreHTTPCSV StoreKind = "httpcsv"
	StoreKafka   StoreKind = "kafka"
)

// KafkaConfig holds the Kafka log store settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
}

// StoreConfig selects and configures the observation log.
type StoreConfig struct {
	Kind  StoreKind   `yaml:"kind" mapstructure:"kind"`
	Path  string      `yaml:"path,omitempty" mapstructure:"path"`
	URL   string      `yaml:"url,omitempty" mapstructure:"url"`
	Kafka KafkaConfig `yaml:"kafka,omitempty" mapstructure:"kafka"`
}

// DetectorConfig controls how detector output is turned into counts.
type DetectorConfig struct {
	TargetLabel   string  `yaml:"target_label" mapstructure:"target_label"`
	MinConfidence float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
	FrameSkip     int     `yaml:"frame_skip" mapstructure:"frame_skip"`
	SourceLabel   string  `yaml:"source_label" mapstructure:"source_label"`
}

// MQTTConfig holds the live detector feed settings.
type MQTTConfig struct {
	Broker   string `yaml:"broker" mapstructure:"broker"`
	Topic    string `yaml:"topic" mapstructure:"topic"`
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
}

// ViewConfig controls the polling dashboards.
type ViewConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	TableLimit   int           `yaml:"table_limit" mapstructure:"table_limit"`
}

// HTTPConfig holds the dashboard API listener settings.
type HTTPConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// SlackConfig holds the Slack webhook for alert notifications.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url,omitempty" mapstructure:"webhook_url"`
}

// NotificationConfig controls outbound alert notifications.
type NotificationConfig struct {
	Enabled bool        `yaml:"enabled" mapstructure:"enabled"`
	Slack   SlackConfig `yaml:"slack" mapstructure:"slack"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// Config is the full straywatch configuration read from .straywatch.yaml.
type Config struct {
	Store         StoreConfig        `yaml:"store" mapstructure:"store"`
	Detector      DetectorConfig     `yaml:"detector" mapstructure:"detector"`
	MQTT          MQTTConfig         `yaml:"mqtt" mapstructure:"mqtt"`
	View          ViewConfig         `yaml:"view" mapstructure:"view"`
	HTTP          HTTPConfig         `yaml:"http" mapstructure:"http"`
	Notifications NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
	Log           LogConfig          `yaml:"log" mapstructure:"log"`
}
