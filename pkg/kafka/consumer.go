package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

const (
	minFetchBackoff = 100 * time.Millisecond
	maxFetchBackoff = 5 * time.Second
	handlerAttempts = 3
)

// MessageHandler is invoked for each fetched message. A non-nil error is
// retried; once the attempts run out the message is logged and committed
// so one bad message cannot stall its partition.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// messageReader is the subset of *kafka.Reader the consumer drives.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a topic as part of the configured consumer group.
type Consumer struct {
	reader     messageReader
	handler    MessageHandler
	retryDelay time.Duration
	logger     *slog.Logger

	processed atomic.Int64
	dropped   atomic.Int64
}

func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.FirstOffset,
	})
	return newConsumer(r, topic, handler)
}

func newConsumer(r messageReader, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:     r,
		handler:    handler,
		retryDelay: 200 * time.Millisecond,
		logger:     slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Run fetches and handles messages until ctx is cancelled, which is a clean
// stop and returns nil. Fetch failures back off exponentially.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer func() {
		c.logger.Info("consumer stopped", "processed", c.processed.Load(), "dropped", c.dropped.Load())
	}()

	backoff := minFetchBackoff
	for {
		msg, err := c.reader.FetchMessage(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, io.EOF):
			return fmt.Errorf("kafka reader closed: %w", err)
		case err != nil:
			c.logger.Error("failed to fetch message", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, maxFetchBackoff)
			continue
		}
		backoff = minFetchBackoff

		if err := c.handle(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.dropped.Add(1)
			c.logger.Error("dropping message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		} else {
			c.processed.Add(1)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("failed to commit offset",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	var err error
	for attempt := 1; attempt <= handlerAttempts; attempt++ {
		if err = c.handler(ctx, msg.Key, msg.Value); err == nil {
			return nil
		}
		if attempt == handlerAttempts {
			break
		}
		c.logger.Warn("handler failed, retrying", "offset", msg.Offset, "attempt", attempt, "error", err)
		if !sleep(ctx, time.Duration(attempt)*c.retryDelay) {
			return ctx.Err()
		}
	}
	return fmt.Errorf("handler failed %d times: %w", handlerAttempts, err)
}

// Processed counts messages handled successfully since start.
func (c *Consumer) Processed() int64 {
	return c.processed.Load()
}

// Dropped counts messages committed after the handler gave up on them.
func (c *Consumer) Dropped() int64 {
	return c.dropped.Load()
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
