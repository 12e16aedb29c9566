package repository

import (
	"context"
	"time"

	"MacroPulse/internal/domain/models"
	pkgkafka "MacroPulse/pkg/kafka"
	applogger "MacroPulse/pkg/logger"
)

// KafkaAlertPublisher emits flagged periods to a Kafka topic after each run.
// Messages are keyed by period so re-runs compact to the latest verdict.
type KafkaAlertPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	l        *applogger.Logger
}

func NewKafkaAlertPublisher(producer *pkgkafka.Producer, topic string) *KafkaAlertPublisher {
	return &KafkaAlertPublisher{producer: producer, topic: topic}
}

// SetLogger injects a structured logger.
func (p *KafkaAlertPublisher) SetLogger(l *applogger.Logger) { p.l = l }

func (p *KafkaAlertPublisher) PublishAlerts(ctx context.Context, records []models.ConsolidatedRecord) error {
	if len(records) == 0 {
		return nil
	}

	start := time.Now()
	msgs := make([]pkgkafka.Message, 0, len(records))
	for _, rec := range records {
		msgs = append(msgs, pkgkafka.Message{
			Key:   []byte(rec.Period.String()),
			Value: rec,
		})
	}

	if err := p.producer.PublishBatch(ctx, p.topic, msgs); err != nil {
		if p.l != nil {
			p.l.Error("alert publish failed",
				applogger.String("topic", p.topic),
				applogger.Int("alerts", len(msgs)),
				applogger.Error(err),
			)
		}
		return err
	}

	if p.l != nil {
		p.l.Info("alerts published",
			applogger.String("topic", p.topic),
			applogger.Int("alerts", len(msgs)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// Close closes the underlying producer.
func (p *KafkaAlertPublisher) Close() error {
	return p.producer.Close()
}
