// Package messaging implements the queue port on kafka. Rejected
// deliveries route to a dead letter topic named after the main topic
// with a ".dlq" suffix.
package messaging

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/payment-processing/internal/config"
	"github.com/wekeepgrowing/payment-processing/internal/domain/queue"
)

type kafkaQueue struct {
	cfg       config.QueueConfig
	writer    *kafka.Writer
	dlqWriter *kafka.Writer
	logger    *zap.Logger
}

// NewKafkaQueue creates the kafka-backed webhook event queue
func NewKafkaQueue(cfg config.QueueConfig, logger *zap.Logger) queue.Queue {
	return &kafkaQueue{
		cfg: cfg,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.WebhookTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		dlqWriter: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.WebhookTopic + ".dlq",
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		logger: logger,
	}
}

func (q *kafkaQueue) Publish(ctx context.Context, key string, body []byte) error {
	err := q.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: body,
	})
	if err != nil {
		q.logger.Error("failed to publish message",
			zap.String("topic", q.cfg.WebhookTopic),
			zap.String("key", key),
			zap.Error(err))
		return err
	}
	return nil
}

// Consume reads the webhook topic in the consumer group until ctx is
// canceled. Offsets commit only after the handler acks or rejects, so
// an unacked delivery redelivers after a crash.
func (q *kafkaQueue) Consume(ctx context.Context, handle func(ctx context.Context, d queue.Delivery)) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: q.cfg.Brokers,
		Topic:   q.cfg.WebhookTopic,
		GroupID: q.cfg.GroupID,
	})
	defer reader.Close()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			q.logger.Error("failed to fetch message",
				zap.String("topic", q.cfg.WebhookTopic),
				zap.Error(err))
			return err
		}

		delivery := queue.Delivery{
			Body: msg.Value,
			Ack: func() error {
				return reader.CommitMessages(ctx, msg)
			},
			Reject: func(requeue bool) error {
				if requeue {
					if err := q.writer.WriteMessages(ctx, kafka.Message{Key: msg.Key, Value: msg.Value}); err != nil {
						return err
					}
				} else {
					q.logger.Warn("routing message to dead letter topic",
						zap.String("topic", q.cfg.WebhookTopic+".dlq"),
						zap.ByteString("key", msg.Key))
					if err := q.dlqWriter.WriteMessages(ctx, kafka.Message{Key: msg.Key, Value: msg.Value}); err != nil {
						return err
					}
				}
				return reader.CommitMessages(ctx, msg)
			},
		}
		handle(ctx, delivery)
	}
}

func (q *kafkaQueue) Close() error {
	if err := q.writer.Close(); err != nil {
		return err
	}
	return q.dlqWriter.Close()
}
