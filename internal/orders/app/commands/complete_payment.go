package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dejobratic/storefront/internal/apperrors"
	"github.com/dejobratic/storefront/internal/identity"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

type CompletePaymentCommand struct {
	OrderID       string
	TransactionID string
	Actor         identity.Identity
}

func (c CompletePaymentCommand) Validate() error {
	if strings.TrimSpace(c.OrderID) == "" {
		return apperrors.Validation("order id is required")
	}
	if strings.TrimSpace(c.TransactionID) == "" {
		return apperrors.Validation("transaction id is required")
	}
	return nil
}

type CompletePaymentHandler interface {
	Handle(ctx context.Context, cmd CompletePaymentCommand) (*domain.Order, error)
}

// CompletePaymentCommandHandler confirms a payment reported by the gateway. The
// gateway transaction id is the idempotency key.
type CompletePaymentCommandHandler struct {
	repo   ports.OrderRepository
	tx     ports.Transactor
	idem   ports.IdempotencyStore
	events ports.EventBus
	logger *slog.Logger
	retry  RetryPolicy
	now    func() time.Time
}

func NewCompletePaymentCommandHandler(
	repo ports.OrderRepository,
	tx ports.Transactor,
	idem ports.IdempotencyStore,
	events ports.EventBus,
	logger *slog.Logger,
	retry RetryPolicy,
) *CompletePaymentCommandHandler {
	return &CompletePaymentCommandHandler{
		repo:   repo,
		tx:     tx,
		idem:   idem,
		events: events,
		logger: logger,
		retry:  retry,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func paymentKey(transactionID string) string {
	return "payment:" + transactionID
}

func (h *CompletePaymentCommandHandler) Handle(ctx context.Context, cmd CompletePaymentCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	key := paymentKey(strings.TrimSpace(cmd.TransactionID))
	seen, err := h.idem.Get(ctx, key)
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	if seen != nil && seen.OrderID != cmd.OrderID {
		return nil, domain.TransactionAlreadyUsed(strings.TrimSpace(cmd.TransactionID))
	}

	var changed bool
	order, err := retryOnConflict(ctx, h.retry, func() (*domain.Order, error) {
		var order *domain.Order
		err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			order, changed, err = h.complete(ctx, cmd)
			return err
		})
		return order, err
	})
	if err != nil {
		return nil, apperrors.Classify(err)
	}

	if !changed {
		return order, nil
	}

	if err := h.idem.Save(ctx, key, ports.StoredResponse{OrderID: order.ID}); err != nil {
		h.logger.WarnContext(ctx, "failed to record payment transaction", "error", err, "order_id", order.ID)
	}

	if err := h.events.PublishPaymentCompleted(ctx, *order); err != nil {
		h.logger.ErrorContext(ctx, "payment completed but event publish failed", "error", err, "order_id", order.ID)
	}

	return order, nil
}

// complete reports changed=false when the payment was already recorded.
func (h *CompletePaymentCommandHandler) complete(ctx context.Context, cmd CompletePaymentCommand) (*domain.Order, bool, error) {
	current, err := h.repo.GetByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, false, err
	}
	if !cmd.Actor.CanAccess(current.UserID) {
		return nil, false, apperrors.Forbidden("not authorized to pay for this order")
	}

	if current.PaymentStatus == domain.PaymentCompleted {
		return current, false, nil
	}

	updated, err := current.CompletePayment(strings.TrimSpace(cmd.TransactionID), h.now())
	if err != nil {
		return nil, false, err
	}

	updated.Version = current.Version + 1
	if err := h.repo.Update(ctx, updated, current.Version); err != nil {
		if domain.IsTransactionAlreadyUsed(err) {
			return nil, false, permanent(err)
		}
		return nil, false, err
	}

	return &updated, true, nil
}
