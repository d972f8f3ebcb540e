package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dejobratic/storefront/internal/orders/domain"
	kafkago "github.com/segmentio/kafka-go"
)

const headerEventType = "event-type"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// EventBus publishes order events to a single topic keyed by order id, so every
// event of one order lands on the same partition in order.
type EventBus struct {
	writer messageWriter
	now    func() time.Time
}

// WriterConfig configures the underlying kafka-go writer.
type WriterConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

func NewEventBus(cfg WriterConfig) *EventBus {
	return newEventBus(&kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	})
}

func newEventBus(writer messageWriter) *EventBus {
	return &EventBus{
		writer: writer,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (b *EventBus) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	return b.publish(ctx, EventOrderPlaced, order.ID, orderPlaced(order))
}

func (b *EventBus) PublishOrderStatusChanged(ctx context.Context, order domain.Order, previous domain.OrderStatus) error {
	return b.publish(ctx, statusEventType(order.Status), order.ID, OrderStatusChangedPayload{
		OrderID: order.ID,
		UserID:  order.UserID,
		From:    string(previous),
		To:      string(order.Status),
	})
}

func (b *EventBus) PublishPaymentCompleted(ctx context.Context, order domain.Order) error {
	return b.publish(ctx, EventPaymentCompleted, order.ID, PaymentCompletedPayload{
		OrderID:       order.ID,
		TransactionID: order.PaymentTransactionID,
		TotalAmount:   order.TotalAmount.String(),
	})
}

// Close flushes pending messages.
func (b *EventBus) Close() error {
	return b.writer.Close()
}

func (b *EventBus) publish(ctx context.Context, eventType, key string, payload any) error {
	envelope, err := newEnvelope(eventType, b.now(), payload)
	if err != nil {
		return err
	}

	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}

	err = b.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: value,
		Time:  envelope.OccurredAt,
		Headers: []kafkago.Header{
			{Key: headerEventType, Value: []byte(eventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}
