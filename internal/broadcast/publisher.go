package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"vitalwatch/internal/models"
)

// Envelope is the payload cached and published for dashboard consumers.
type Envelope struct {
	PatientID string                 `json:"patientId"`
	Sample    models.VitalSample     `json:"sample"`
	Result    models.DetectionResult `json:"result"`
	EmittedAt time.Time              `json:"emittedAt"`
}

// Publisher fans detection results out over Redis: the latest result per
// patient is cached under a keyed entry with a TTL, and every result is
// published on a channel for live subscribers.
type Publisher struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	channel   string
	ttl       time.Duration
}

// NewPublisher creates a publisher. keyPrefix is prepended to the patient
// ID for the latest-result cache key.
func NewPublisher(client *redis.Client, logger *zap.Logger, keyPrefix, channel string, ttl time.Duration) *Publisher {
	return &Publisher{
		client:    client,
		logger:    logger,
		keyPrefix: keyPrefix,
		channel:   channel,
		ttl:       ttl,
	}
}

// PublishResult caches the latest detection result for the patient and
// publishes it on the broadcast channel.
func (p *Publisher) PublishResult(ctx context.Context, sample models.VitalSample, result models.DetectionResult) error {
	envelope := Envelope{
		PatientID: sample.PatientID,
		Sample:    sample,
		Result:    result,
		EmittedAt: time.Now(),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast envelope: %w", err)
	}

	key := p.keyPrefix + sample.PatientID + ":latest"
	if err := p.client.Set(ctx, key, payload, p.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache latest result: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish result: %w", err)
	}

	p.logger.Debug("result broadcast",
		zap.String("patient_id", sample.PatientID),
		zap.Bool("is_anomaly", result.IsAnomaly),
		zap.String("severity", string(result.Severity)),
	)

	return nil
}

// LatestResult reads the cached latest result for a patient. Returns nil
// without error when nothing is cached.
func (p *Publisher) LatestResult(ctx context.Context, patientID string) (*Envelope, error) {
	key := p.keyPrefix + patientID + ":latest"
	val, err := p.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest result: %w", err)
	}

	var envelope Envelope
	if err := json.Unmarshal([]byte(val), &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal latest result: %w", err)
	}
	return &envelope, nil
}
