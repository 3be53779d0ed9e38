package repository

import (
	"context"

	domrepo "MarketWatch/internal/domain/repository"
	pkgkafka "MarketWatch/pkg/kafka"
)

// KafkaPublisher adapts the Kafka producer to the pipeline's publish port.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
}

func NewKafkaPublisher(producer *pkgkafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, key []byte, value any) error {
	return p.producer.Publish(ctx, topic, key, value)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

var _ domrepo.Publisher = (*KafkaPublisher)(nil)
