package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"strconv"
	"time"
)

const EventVersion = 1

// Sink is where encoded messages go; *Producer is the production sink.
type Sink interface {
	Publish(m kafka.Message) error
}

// EventPublisher wraps domain payloads in an Envelope and hands them to a Sink.
type EventPublisher struct {
	Sink     Sink
	Producer string // service name recorded in every envelope
	now      func() time.Time
}

var _ orders.Publisher = (*EventPublisher)(nil)

func NewEventPublisher(sink Sink, producer string) *EventPublisher {
	return &EventPublisher{Sink: sink, Producer: producer, now: time.Now}
}

func (p *EventPublisher) Publish(ctx context.Context, topic, key, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  EventVersion,
		OccurredAt:    p.now().UTC(),
		Producer:      p.Producer,
		TraceID:       traceID(ctx),
		CorrelationID: key,
		Payload:       raw,
	}
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return p.Sink.Publish(kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: b,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(eventType)},
			{Key: "x-event-version", Value: []byte(strconv.Itoa(EventVersion))},
		},
	})
}

type traceKey struct{}

// WithTraceID lets the HTTP layer propagate its request id into events.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func traceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
