package kafka

import (
	"context"
	"log/slog"

	"github.com/dejobratic/storefront/internal/orders/domain"
)

// NoopEventBus logs events without sending them anywhere. It is used when no
// brokers are configured.
type NoopEventBus struct {
	logger *slog.Logger
}

// NewNoopEventBus returns a new no-op event publisher.
func NewNoopEventBus(logger *slog.Logger) *NoopEventBus {
	return &NoopEventBus{logger: logger}
}

func (n *NoopEventBus) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	n.logger.DebugContext(ctx, "event::"+EventOrderPlaced, "order_id", order.ID, "total_amount", order.TotalAmount.String())
	return nil
}

func (n *NoopEventBus) PublishOrderStatusChanged(ctx context.Context, order domain.Order, previous domain.OrderStatus) error {
	n.logger.DebugContext(ctx, "event::"+statusEventType(order.Status), "order_id", order.ID, "from", previous, "to", order.Status)
	return nil
}

func (n *NoopEventBus) PublishPaymentCompleted(ctx context.Context, order domain.Order) error {
	n.logger.DebugContext(ctx, "event::"+EventPaymentCompleted, "order_id", order.ID, "transaction_id", order.PaymentTransactionID)
	return nil
}

func (n *NoopEventBus) Close() error {
	return nil
}
