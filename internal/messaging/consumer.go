package messaging

import (
	"context"
	"errors"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var consumerTracer = otel.Tracer("chopflow/messaging/consumer")

// HandlerFunc processes one message payload. Returning an error stops the
// consumer without committing the message, so it is redelivered.
type HandlerFunc func(ctx context.Context, payload []byte) error

type Consumer struct {
	reader  *kafka.Reader
	topic   string
	groupID string
}

type ConsumerOption func(*kafka.ReaderConfig)

func WithStartOffset(offset int64) ConsumerOption {
	return func(cfg *kafka.ReaderConfig) {
		cfg.StartOffset = offset
	}
}

func NewConsumer(brokers []string, topic, groupID string, opts ...ConsumerOption) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Consumer{
		reader:  kafka.NewReader(cfg),
		topic:   topic,
		groupID: groupID,
	}
}

// Consume fetches, handles and commits messages until ctx is cancelled or
// the handler fails. Cancellation is reported as a nil error.
func (c *Consumer) Consume(ctx context.Context, handle HandlerFunc) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if err := c.process(ctx, msg, handle); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message, handle HandlerFunc) error {
	parent := otel.GetTextMapPropagator().Extract(ctx, headerCarrier{msg: &msg})

	spanCtx, span := consumerTracer.Start(parent, "process "+c.topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("process"),
			semconv.MessagingOperationTypeDeliver,
			semconv.MessagingDestinationName(c.topic),
			semconv.MessagingKafkaConsumerGroup(c.groupID),
			semconv.MessagingKafkaMessageOffset(int(msg.Offset)),
			semconv.MessagingDestinationPartitionID(strconv.Itoa(msg.Partition)),
			semconv.MessagingKafkaMessageKey(string(msg.Key)),
		),
	)
	defer span.End()

	if err := handle(spanCtx, msg.Value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
