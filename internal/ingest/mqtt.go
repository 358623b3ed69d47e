package ingest

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"vitalwatch/internal/config"
	"vitalwatch/internal/models"
)

// SampleHandler receives each decoded vital sample.
type SampleHandler func(sample models.VitalSample)

// Subscriber consumes vital-sample JSON from the MQTT ingestion topic and
// hands decoded samples to the handler. Malformed payloads are logged and
// dropped; they never stop the subscription.
type Subscriber struct {
	client mqtt.Client
	cfg    *config.MQTTConfig
	logger *zap.Logger
}

// NewSubscriber connects to the broker.
func NewSubscriber(cfg *config.MQTTConfig, logger *zap.Logger) (*Subscriber, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Subscriber{
		client: client,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// SubscribeVitals subscribes to the configured vitals topic.
func (s *Subscriber) SubscribeVitals(handler SampleHandler) error {
	token := s.client.Subscribe(s.cfg.Topic, s.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		var sample models.VitalSample
		if err := json.Unmarshal(msg.Payload(), &sample); err != nil {
			s.logger.Warn("dropping malformed vital sample",
				zap.String("topic", msg.Topic()),
				zap.Error(err),
			)
			return
		}
		if sample.PatientID == "" {
			s.logger.Warn("dropping vital sample without patient id",
				zap.String("topic", msg.Topic()),
			)
			return
		}
		handler(sample)
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.cfg.Topic, token.Error())
	}

	s.logger.Info("subscribed to vitals topic", zap.String("topic", s.cfg.Topic))
	return nil
}

// Close disconnects from the broker.
func (s *Subscriber) Close() {
	s.client.Disconnect(250)
}
