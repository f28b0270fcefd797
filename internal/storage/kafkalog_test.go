package storage

import (
	"testing"

	"github.com/straywatch/straywatch/pkg/models"
)

func TestNewKafkaLog_RequiresBrokersAndTopic(t *testing.T) {
	if _, err := NewKafkaLog(models.KafkaConfig{Topic: "dog-counts"}, nil); err == nil {
		t.Error("expected error without brokers")
	}
	if _, err := NewKafkaLog(models.KafkaConfig{Brokers: []string{"localhost:9092"}}, nil); err == nil {
		t.Error("expected error without topic")
	}
}

func TestDecodeKafkaMessage(t *testing.T) {
	row, ok := decodeKafkaMessage([]byte(`{"id":"x","timestamp":"2025-06-10T14:00:00Z","count":3,"source":"webcam"}`))
	if !ok {
		t.Fatal("expected valid message")
	}
	if row[models.ColumnCount] != "3" || row[models.ColumnSource] != "webcam" {
		t.Errorf("unexpected row %v", row)
	}

	if _, ok := decodeKafkaMessage([]byte("{broken")); ok {
		t.Error("expected invalid JSON to be rejected")
	}
}
