package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/dejobratic/storefront/internal/apperrors"
	"github.com/shopspring/decimal"
)

// OrderStatus captures the fulfilment lifecycle of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus tracks the payment boundary separately from fulfilment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// transitions lists the allowed moves. Cancellation is possible from every
// non-terminal status; delivered and cancelled are terminal.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
}

// ParseOrderStatus validates a status name received from a client.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return status, nil
	default:
		return "", apperrors.Validation(fmt.Sprintf("unknown order status %q", raw))
	}
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderLine is a purchased product with its name and price captured at placement.
type OrderLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is price times quantity.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order represents a placed purchase. Orders are never deleted.
type Order struct {
	ID                   string          `json:"id"`
	UserID               string          `json:"user_id"`
	Lines                []OrderLine     `json:"lines"`
	ShippingAddress      string          `json:"shipping_address"`
	PaymentMethod        string          `json:"payment_method"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	Status               OrderStatus     `json:"status"`
	PaymentStatus        PaymentStatus   `json:"payment_status"`
	PaymentTransactionID string          `json:"payment_transaction_id,omitempty"`
	Version              int             `json:"version"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// ComputeTotal sums the line subtotals.
func ComputeTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// Validate ensures the order adheres to business constraints.
func (o Order) Validate() error {
	if strings.TrimSpace(o.UserID) == "" {
		return apperrors.Validation("user id is required")
	}
	if len(o.Lines) == 0 {
		return apperrors.Validation("order must contain at least one line")
	}
	for _, line := range o.Lines {
		if line.Quantity < 1 {
			return apperrors.Validation("line quantity must be at least 1")
		}
	}
	if strings.TrimSpace(o.ShippingAddress) == "" {
		return apperrors.Validation("shipping address is required")
	}
	if strings.TrimSpace(o.PaymentMethod) == "" {
		return apperrors.Validation("payment method is required")
	}
	if !o.TotalAmount.Equal(ComputeTotal(o.Lines)) {
		return apperrors.Validation("total amount does not match lines")
	}
	return nil
}

func (o Order) isTerminal() bool {
	return len(transitions[o.Status]) == 0
}

// TransitionTo returns a copy of the order moved to status, or InvalidTransition.
func (o Order) TransitionTo(status OrderStatus, now time.Time) (Order, error) {
	if o.isTerminal() {
		return o, apperrors.WithMetadata(apperrors.KindInvalidTransition,
			fmt.Sprintf("order is %s and can no longer change", o.Status),
			map[string]string{
				"order_id": o.ID,
				"from":     string(o.Status),
				"to":       string(status),
			})
	}
	if !CanTransition(o.Status, status) {
		return o, InvalidTransition(o.ID, o.Status, status)
	}
	o.Status = status
	o.UpdatedAt = now
	return o, nil
}

// CompletePayment records a successful payment and starts processing the order.
func (o Order) CompletePayment(transactionID string, now time.Time) (Order, error) {
	if o.Status != StatusPending {
		return o, InvalidTransition(o.ID, o.Status, StatusProcessing)
	}
	o.PaymentStatus = PaymentCompleted
	o.PaymentTransactionID = transactionID
	o.Status = StatusProcessing
	o.UpdatedAt = now
	return o, nil
}

// OrderNotFound reports a missing order by identifier.
func OrderNotFound(id string) error {
	return apperrors.WithMetadata(apperrors.KindNotFound, "order not found", map[string]string{
		"order_id": id,
	})
}

// TransactionAlreadyUsed reports a payment transaction id already recorded on another order.
func TransactionAlreadyUsed(transactionID string) error {
	return apperrors.WithMetadata(apperrors.KindConflict, "transaction id already used for another order", map[string]string{
		"transaction_id": transactionID,
	})
}

// IsTransactionAlreadyUsed distinguishes a reused transaction id from a lost version race.
func IsTransactionAlreadyUsed(err error) bool {
	appErr, ok := apperrors.As(err)
	if !ok || appErr.Kind != apperrors.KindConflict {
		return false
	}
	_, ok = appErr.Metadata["transaction_id"]
	return ok
}

// InvalidTransition reports a status move the lifecycle does not allow.
func InvalidTransition(id string, from, to OrderStatus) error {
	return apperrors.WithMetadata(apperrors.KindInvalidTransition,
		fmt.Sprintf("cannot move order from %s to %s", from, to),
		map[string]string{
			"order_id": id,
			"from":     string(from),
			"to":       string(to),
		})
}
