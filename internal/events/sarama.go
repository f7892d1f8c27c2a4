package events

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
)

type SaramaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewSaramaPublisher(brokers []string, topic string) (*SaramaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("sarama producer: %w", err)
	}
	return newSaramaPublisher(producer, topic), nil
}

func newSaramaPublisher(producer sarama.SyncProducer, topic string) *SaramaPublisher {
	return &SaramaPublisher{producer: producer, topic: topic}
}

// Publish ignores ctx; the sync producer has its own timeouts.
func (p *SaramaPublisher) Publish(_ context.Context, ev PointChanged) error {
	value, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.ByteEncoder(ev.Key()),
		Value: sarama.ByteEncoder(value),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("sarama send: %w", err)
	}
	return nil
}

func (p *SaramaPublisher) Close() error {
	return p.producer.Close()
}
