// Package events publishes notifications about refreshed cache entries.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/suteetoe/cnpjsync/config"
	"go.uber.org/zap"
)

// CompanyEnriched is emitted after a cache entry was refreshed from the provider
type CompanyEnriched struct {
	ID        uint      `json:"id"`
	CNPJ      string    `json:"cnpj"`
	LegalName string    `json:"legal_name"`
	Status    string    `json:"status"`
	SyncedAt  time.Time `json:"synced_at"`
}

// Publisher delivers events. Delivery is best effort.
type Publisher interface {
	PublishCompanyEnriched(ctx context.Context, ev CompanyEnriched) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to one topic, keyed by cnpj so updates of the
// same company stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	log    *zap.Logger
}

// NewKafkaPublisher creates a publisher on brokers/topic
func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w, log: log}
}

func (p *KafkaPublisher) PublishCompanyEnriched(ctx context.Context, ev CompanyEnriched) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode company enriched event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.CNPJ),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte("company.enriched")},
		},
	}); err != nil {
		return fmt.Errorf("publish company enriched %s: %w", ev.CNPJ, err)
	}
	p.log.Debug("Event published", zap.String("cnpj", ev.CNPJ))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) PublishCompanyEnriched(context.Context, CompanyEnriched) error { return nil }
func (NopPublisher) Close() error                                                  { return nil }

// New returns a Kafka publisher when brokers are configured, a NopPublisher otherwise
func New(cfg config.KafkaConfig, log *zap.Logger) Publisher {
	if len(cfg.Brokers) == 0 {
		log.Info("Kafka brokers not configured, events disabled")
		return NopPublisher{}
	}
	log.Info("Kafka publisher configured", zap.Strings("brokers", cfg.Brokers), zap.String("topic", cfg.Topic))
	return NewKafkaPublisher(cfg.Brokers, cfg.Topic, log)
}
