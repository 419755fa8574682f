package ingest

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lutefd/pongboard/internal/config"
	"github.com/lutefd/pongboard/internal/domain/matches"
	"github.com/segmentio/kafka-go"
)

// Producer publishes finished matches in the format Consumer reads.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(cfg config.KafkaConfig) *Producer {
	return &Producer{writer: &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}}
}

func (p *Producer) Publish(ctx context.Context, sub matches.Submission) error {
	value, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode match: %w", err)
	}
	msg := kafka.Message{Value: value}
	if sub.GameID != uuid.Nil {
		msg.Key = []byte(sub.GameID.String())
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
