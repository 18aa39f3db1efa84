package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var producerTracer = otel.Tracer("chopflow/messaging/producer")

// Producer publishes JSON events to a single topic.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		topic: topic,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
		},
	}
}

func (p *Producer) Topic() string {
	return p.topic
}

// Publish marshals event and writes it keyed by key. Events for the same
// order share a key and therefore a partition.
func (p *Producer) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", p.topic, err)
	}

	ctx, span := producerTracer.Start(ctx, "send "+p.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingKafkaMessageKey(key),
		),
	)
	defer span.End()

	msg := kafka.Message{Key: []byte(key), Value: data}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: &msg})

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("write %s message: %w", p.topic, err)
	}

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
