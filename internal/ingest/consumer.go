// Package ingest records finished matches published on a kafka topic.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lutefd/pongboard/internal/config"
	"github.com/lutefd/pongboard/internal/domain/matches"
	"github.com/lutefd/pongboard/internal/projections"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	filterCapacity = 1_000_000
	filterFPRate   = 1e-6
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Recorder interface {
	RecordGame(ctx context.Context, sub matches.Submission) (matches.Record, bool, error)
}

func NewReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	})
}

type Stats struct {
	Recorded   int
	Duplicates int
	Rejected   int
}

type Consumer struct {
	reader   MessageReader
	recorder Recorder
	log      *zap.Logger

	mu    sync.Mutex
	seen  *bloom.BloomFilter
	stats Stats
}

func NewConsumer(reader MessageReader, recorder Recorder, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{
		reader:   reader,
		recorder: recorder,
		log:      log,
		seen:     bloom.NewWithEstimates(filterCapacity, filterFPRate),
	}
}

// Run consumes until ctx is done or the reader fails. Every handled message
// is committed, including rejected ones; a store failure leaves the message
// uncommitted and stops the consumer.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch match: %w", err)
		}
		if err := c.handle(ctx, msg); err != nil {
			return err
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit match: %w", err)
		}
	}
}

func (c *Consumer) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	log := c.log.With(zap.String("topic", msg.Topic), zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset))

	var sub matches.Submission
	if err := json.Unmarshal(msg.Value, &sub); err != nil {
		log.Warn("drop undecodable match", zap.Error(err))
		c.count(func(s *Stats) { s.Rejected++ })
		return nil
	}
	if sub.GameID == uuid.Nil {
		sub.GameID = positionID(msg)
	}

	key := sub.GameID.String()
	c.mu.Lock()
	dup := c.seen.TestString(key)
	c.mu.Unlock()
	if dup {
		log.Debug("skip redelivered match", zap.String("game_id", key))
		c.count(func(s *Stats) { s.Duplicates++ })
		return nil
	}

	_, stored, err := c.recorder.RecordGame(ctx, sub)
	switch {
	case errors.Is(err, matches.ErrInvalidRecord), errors.Is(err, projections.ErrUnknownPlayer):
		log.Warn("reject match", zap.String("game_id", key), zap.Error(err))
		c.count(func(s *Stats) { s.Rejected++ })
		return nil
	case err != nil:
		return fmt.Errorf("record match %s: %w", key, err)
	}

	c.mu.Lock()
	c.seen.AddString(key)
	if stored {
		c.stats.Recorded++
	} else {
		c.stats.Duplicates++
	}
	c.mu.Unlock()
	log.Info("match recorded", zap.String("game_id", key), zap.Bool("new", stored))
	return nil
}

func (c *Consumer) count(fn func(*Stats)) {
	c.mu.Lock()
	fn(&c.stats)
	c.mu.Unlock()
}

// positionID derives a stable game id from the message position, so a
// redelivered message without an id still maps onto the stored game.
func positionID(msg kafka.Message) uuid.UUID {
	name := fmt.Sprintf("kafka:%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name))
}
