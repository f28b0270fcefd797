package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/straywatch/straywatch/pkg/models"
)

// kafkaReadTimeout bounds one ReadAll across all partitions.
const kafkaReadTimeout = 10 * time.Second

// kafkaLog implements ObservationLog on a Kafka topic. Observations are
// JSON message values keyed by observation ID; ReadAll replays every
// partition from its first offset to the high watermark seen at call time.
type kafkaLog struct {
	brokers []string
	topic   string
	writer  *kafka.Writer
	log     *slog.Logger
}

// NewKafkaLog returns an ObservationLog writing to and replaying cfg.Topic.
func NewKafkaLog(cfg models.KafkaConfig, logger *slog.Logger) (ObservationLog, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka log: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka log: no topic configured")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &kafkaLog{
		brokers: cfg.Brokers,
		topic:   cfg.Topic,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		log: logger,
	}, nil
}

// Append publishes the observation and waits for the broker acknowledgement.
func (k *kafkaLog) Append(ctx context.Context, obs models.Observation) error {
	value, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshalling observation: %w", err)
	}
	msg := kafka.Message{Key: []byte(obs.ID), Value: value, Time: obs.Timestamp}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing observation to %s: %w", k.topic, err)
	}
	return nil
}

// ReadAll replays the topic. Rows from different partitions interleave in
// no particular order; readers sort by timestamp.
func (k *kafkaLog) ReadAll(ctx context.Context) ([]models.Row, error) {
	ctx, cancel := context.WithTimeout(ctx, kafkaReadTimeout)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", k.brokers[0])
	if err != nil {
		return nil, fmt.Errorf("dialing kafka: %w", err)
	}
	parts, err := conn.ReadPartitions(k.topic)
	_ = conn.Close()
	if err != nil {
		return nil, fmt.Errorf("reading partitions of %s: %w", k.topic, err)
	}

	var rows []models.Row
	for _, p := range parts {
		partRows, err := k.readPartition(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, partRows...)
	}
	return rows, nil
}

func (k *kafkaLog) readPartition(ctx context.Context, partition int) ([]models.Row, error) {
	leader, err := kafka.DialLeader(ctx, "tcp", k.brokers[0], k.topic, partition)
	if err != nil {
		return nil, fmt.Errorf("dialing leader for %s/%d: %w", k.topic, partition, err)
	}
	first, last, err := leader.ReadOffsets()
	_ = leader.Close()
	if err != nil {
		return nil, fmt.Errorf("reading offsets of %s/%d: %w", k.topic, partition, err)
	}
	if last <= first {
		return nil, nil
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   k.brokers,
		Topic:     k.topic,
		Partition: partition,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if err := reader.SetOffset(first); err != nil {
		return nil, fmt.Errorf("seeking %s/%d: %w", k.topic, partition, err)
	}

	rows := make([]models.Row, 0, last-first)
	for {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("replaying %s/%d: timed out at offset %d of %d", k.topic, partition, reader.Offset(), last)
			}
			return nil, fmt.Errorf("replaying %s/%d: %w", k.topic, partition, err)
		}
		row, ok := decodeKafkaMessage(m.Value)
		if !ok {
			k.log.Warn("kafka_invalid_json", "topic", k.topic, "partition", partition, "offset", m.Offset)
		} else {
			rows = append(rows, row)
		}
		if m.Offset+1 >= last {
			break
		}
	}
	return rows, nil
}

func decodeKafkaMessage(value []byte) (models.Row, bool) {
	var obs models.Observation
	if err := json.Unmarshal(value, &obs); err != nil {
		return nil, false
	}
	return obs.Row(), true
}

// Close flushes and closes the writer.
func (k *kafkaLog) Close() error {
	if err := k.writer.Close(); err != nil {
		return fmt.Errorf("closing kafka writer: %w", err)
	}
	return nil
}
