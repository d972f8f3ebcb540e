package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/google/uuid"
)

// Event types carried in the envelope and the event-type header.
const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderCancelled     = "order.cancelled"
	EventPaymentCompleted   = "order.payment_completed"
)

// Envelope wraps every published payload.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type OrderLinePayload struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

type OrderPlacedPayload struct {
	OrderID     string             `json:"order_id"`
	UserID      string             `json:"user_id"`
	TotalAmount string             `json:"total_amount"`
	Lines       []OrderLinePayload `json:"lines"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type PaymentCompletedPayload struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	TotalAmount   string `json:"total_amount"`
}

func newEnvelope(eventType string, occurredAt time.Time, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: occurredAt.UTC(),
		Data:       raw,
	}, nil
}

func orderPlaced(order domain.Order) OrderPlacedPayload {
	lines := make([]OrderLinePayload, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, OrderLinePayload{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price.String(),
		})
	}
	return OrderPlacedPayload{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount.String(),
		Lines:       lines,
	}
}

// statusEventType singles out cancellations so consumers can subscribe to them alone.
func statusEventType(status domain.OrderStatus) string {
	if status == domain.StatusCancelled {
		return EventOrderCancelled
	}
	return EventOrderStatusChanged
}
