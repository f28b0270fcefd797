package detector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/straywatch/straywatch/pkg/models"
)

// Publisher republishes frames from a Source onto an MQTT topic at a fixed
// pace, standing in for a live detector process.
type Publisher struct {
	client   mqtt.Client
	topic    string
	interval time.Duration
	log      *slog.Logger
}

// ConnectPublisher connects to cfg.Broker and returns a Publisher for
// cfg.Topic. The client ID is suffixed so it does not collide with a
// recorder subscribed under cfg.ClientID.
func ConnectPublisher(cfg models.MQTTConfig, interval time.Duration, logger *slog.Logger) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID + "-publisher").
		SetConnectTimeout(mqttConnectTimeout)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to mqtt broker %s: %w", cfg.Broker, token.Error())
	}
	return newPublisher(client, cfg.Topic, interval, logger), nil
}

func newPublisher(client mqtt.Client, topic string, interval time.Duration, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Publisher{client: client, topic: topic, interval: interval, log: logger}
}

// Run publishes every frame of src and returns the number published. A
// positive interval pauses between frames.
func (p *Publisher) Run(ctx context.Context, src Source) (int, error) {
	frames := make(chan models.DetectionFrame)
	errc := make(chan error, 1)
	go func() {
		errc <- src.Stream(ctx, frames)
		close(frames)
	}()

	published := 0
	var pubErr error
	for frame := range frames {
		if pubErr != nil {
			continue
		}
		if frame.Timestamp.IsZero() {
			frame.Timestamp = time.Now().UTC()
		}
		if err := PublishFrame(p.client, p.topic, frame); err != nil {
			pubErr = err
			continue
		}
		published++
		p.log.Debug("frame_published", "topic", p.topic, "frame", frame.FrameNumber)

		if p.interval > 0 {
			select {
			case <-time.After(p.interval):
			case <-ctx.Done():
			}
		}
	}

	srcErr := <-errc
	if pubErr != nil {
		return published, pubErr
	}
	if srcErr != nil && ctx.Err() == nil {
		return published, srcErr
	}
	return published, nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(mqttDisconnectQuiesce)
}
