package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type recordingWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func testOrder() domain.Order {
	lines := []domain.OrderLine{{ProductID: "p1", Name: "Mug", Price: decimal.RequireFromString("4.50"), Quantity: 3}}
	return domain.Order{
		ID:                   "order-1",
		UserID:               "user-1",
		Lines:                lines,
		TotalAmount:          domain.ComputeTotal(lines),
		Status:               domain.StatusProcessing,
		PaymentStatus:        domain.PaymentCompleted,
		PaymentTransactionID: "tx-1",
	}
}

func decodeEnvelope(t *testing.T, msg kafkago.Message) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if _, err := uuid.Parse(env.ID); err != nil {
		t.Errorf("envelope id %q is not a uuid", env.ID)
	}
	return env
}

func TestEventBus_Publish(t *testing.T) {
	fixed := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		publish  func(b *EventBus) error
		wantType string
		check    func(t *testing.T, data json.RawMessage)
	}{
		{
			name:     "order placed",
			publish:  func(b *EventBus) error { return b.PublishOrderPlaced(context.Background(), testOrder()) },
			wantType: EventOrderPlaced,
			check: func(t *testing.T, data json.RawMessage) {
				var p OrderPlacedPayload
				_ = json.Unmarshal(data, &p)
				if p.TotalAmount != "13.5" || len(p.Lines) != 1 || p.Lines[0].Quantity != 3 {
					t.Errorf("unexpected payload %+v", p)
				}
			},
		},
		{
			name: "status changed",
			publish: func(b *EventBus) error {
				return b.PublishOrderStatusChanged(context.Background(), testOrder(), domain.StatusPending)
			},
			wantType: EventOrderStatusChanged,
			check: func(t *testing.T, data json.RawMessage) {
				var p OrderStatusChangedPayload
				_ = json.Unmarshal(data, &p)
				if p.From != "pending" || p.To != "processing" {
					t.Errorf("unexpected payload %+v", p)
				}
			},
		},
		{
			name: "cancellation",
			publish: func(b *EventBus) error {
				order := testOrder()
				order.Status = domain.StatusCancelled
				return b.PublishOrderStatusChanged(context.Background(), order, domain.StatusProcessing)
			},
			wantType: EventOrderCancelled,
		},
		{
			name:     "payment completed",
			publish:  func(b *EventBus) error { return b.PublishPaymentCompleted(context.Background(), testOrder()) },
			wantType: EventPaymentCompleted,
			check: func(t *testing.T, data json.RawMessage) {
				var p PaymentCompletedPayload
				_ = json.Unmarshal(data, &p)
				if p.TransactionID != "tx-1" {
					t.Errorf("unexpected payload %+v", p)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := &recordingWriter{}
			bus := newEventBus(writer)
			bus.now = func() time.Time { return fixed }

			if err := tt.publish(bus); err != nil {
				t.Fatalf("publish failed: %v", err)
			}
			if len(writer.messages) != 1 {
				t.Fatalf("expected 1 message, got %d", len(writer.messages))
			}

			msg := writer.messages[0]
			if string(msg.Key) != "order-1" {
				t.Errorf("key = %q, want order id", msg.Key)
			}
			if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != tt.wantType {
				t.Errorf("unexpected headers %+v", msg.Headers)
			}

			env := decodeEnvelope(t, msg)
			if env.Type != tt.wantType || !env.OccurredAt.Equal(fixed) {
				t.Errorf("unexpected envelope %+v", env)
			}
			if tt.check != nil {
				tt.check(t, env.Data)
			}
		})
	}
}

func TestEventBus_PublishError(t *testing.T) {
	writer := &recordingWriter{err: errors.New("broker down")}
	bus := newEventBus(writer)

	if err := bus.PublishOrderPlaced(context.Background(), testOrder()); err == nil {
		t.Fatal("expected error when the writer fails")
	}

	if err := bus.Close(); err != nil || !writer.closed {
		t.Errorf("Close() = %v, closed = %v", err, writer.closed)
	}
}
