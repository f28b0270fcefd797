package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/straywatch/straywatch/pkg/models"
)

const (
	mqttQoS               = 1
	mqttConnectTimeout    = 10 * time.Second
	mqttDisconnectQuiesce = 250
)

// MQTTSource subscribes to a topic on which a detector publishes one JSON
// DetectionFrame per message. It is the live webcam feed.
type MQTTSource struct {
	cfg       models.MQTTConfig
	label     string
	log       *slog.Logger
	newClient func(*mqtt.ClientOptions) mqtt.Client
}

// NewMQTTSource returns a Source subscribed to cfg.Topic on cfg.Broker. An
// empty label defaults to "webcam".
func NewMQTTSource(cfg models.MQTTConfig, label string, logger *slog.Logger) *MQTTSource {
	if label == "" {
		label = models.SourceWebcam
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MQTTSource{cfg: cfg, label: label, log: logger, newClient: mqtt.NewClient}
}

// Label returns the source label recorded with each observation.
func (m *MQTTSource) Label() string {
	return m.label
}

// Stream connects, subscribes, and forwards decoded frames until ctx is
// cancelled. Undecodable payloads are logged and dropped.
func (m *MQTTSource) Stream(ctx context.Context, out chan<- models.DetectionFrame) error {
	opts := mqtt.NewClientOptions().
		AddBroker(m.cfg.Broker).
		SetClientID(m.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		m.log.Warn("mqtt_connection_lost", "broker", m.cfg.Broker, "err", err)
	})

	client := m.newClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connecting to mqtt broker %s: %w", m.cfg.Broker, token.Error())
	}
	defer client.Disconnect(mqttDisconnectQuiesce)

	// inbox is never closed; done stops late callbacks after Stream returns.
	inbox := make(chan models.DetectionFrame, 64)
	done := make(chan struct{})
	defer close(done)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		frame, err := decodeFrame(msg.Payload())
		if err != nil {
			m.log.Warn("mqtt_invalid_payload", "topic", msg.Topic(), "err", err)
			return
		}
		select {
		case inbox <- frame:
		case <-done:
		}
	}

	token := client.Subscribe(m.cfg.Topic, mqttQoS, handler)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribing to %s: %w", m.cfg.Topic, err)
	}
	m.log.Info("mqtt_subscribed", "broker", m.cfg.Broker, "topic", m.cfg.Topic)
	defer client.Unsubscribe(m.cfg.Topic)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-inbox:
			select {
			case out <- frame:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func decodeFrame(payload []byte) (models.DetectionFrame, error) {
	var frame models.DetectionFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return models.DetectionFrame{}, fmt.Errorf("decoding detection frame: %w", err)
	}
	return frame, nil
}

// PublishFrame publishes a detection frame to topic, the way a detector
// process feeds MQTTSource.
func PublishFrame(client mqtt.Client, topic string, frame models.DetectionFrame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshalling detection frame: %w", err)
	}
	token := client.Publish(topic, mqttQoS, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing detection frame: %w", err)
	}
	return nil
}
