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

type UpdateStatusCommand struct {
	OrderID string
	Status  string
	Actor   identity.Identity
}

func (c UpdateStatusCommand) Validate() error {
	if strings.TrimSpace(c.OrderID) == "" {
		return apperrors.Validation("order id is required")
	}
	_, err := domain.ParseOrderStatus(c.Status)
	return err
}

// StatusChange is the outcome of a successful transition.
type StatusChange struct {
	Order    domain.Order
	Previous domain.OrderStatus
}

type UpdateStatusHandler interface {
	Handle(ctx context.Context, cmd UpdateStatusCommand) (*StatusChange, error)
}

type UpdateStatusCommandHandler struct {
	repo    ports.OrderRepository
	catalog ports.Catalog
	tx      ports.Transactor
	events  ports.EventBus
	logger  *slog.Logger
	retry   RetryPolicy
	now     func() time.Time
}

func NewUpdateStatusCommandHandler(
	repo ports.OrderRepository,
	catalog ports.Catalog,
	tx ports.Transactor,
	events ports.EventBus,
	logger *slog.Logger,
	retry RetryPolicy,
) *UpdateStatusCommandHandler {
	return &UpdateStatusCommandHandler{
		repo:    repo,
		catalog: catalog,
		tx:      tx,
		events:  events,
		logger:  logger,
		retry:   retry,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Handle moves the order along the transition table. Cancelling returns every
// line's quantity to stock in the same transaction as the status write.
func (h *UpdateStatusCommandHandler) Handle(ctx context.Context, cmd UpdateStatusCommand) (*StatusChange, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	target, _ := domain.ParseOrderStatus(cmd.Status)

	change, err := retryOnConflict(ctx, h.retry, func() (*StatusChange, error) {
		var change *StatusChange
		err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			change, err = h.transition(ctx, cmd, target)
			return err
		})
		return change, err
	})
	if err != nil {
		return nil, apperrors.Classify(err)
	}

	if err := h.events.PublishOrderStatusChanged(ctx, change.Order, change.Previous); err != nil {
		h.logger.ErrorContext(ctx, "status changed but event publish failed", "error", err, "order_id", change.Order.ID)
	}

	return change, nil
}

func (h *UpdateStatusCommandHandler) transition(ctx context.Context, cmd UpdateStatusCommand, target domain.OrderStatus) (*StatusChange, error) {
	current, err := h.repo.GetByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if !cmd.Actor.IsAdmin() {
		return nil, apperrors.Forbidden("only administrators may change order status")
	}

	updated, err := current.TransitionTo(target, h.now())
	if err != nil {
		return nil, err
	}

	// The version-checked write goes first so a lost race aborts before any stock moves.
	updated.Version = current.Version + 1
	if err := h.repo.Update(ctx, updated, current.Version); err != nil {
		return nil, err
	}

	if target == domain.StatusCancelled {
		for _, line := range current.Lines {
			if err := h.catalog.IncrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				if apperrors.KindOf(err) == apperrors.KindNotFound {
					// The product was removed from the catalog; there is no stock to restore.
					continue
				}
				return nil, err
			}
		}
	}

	return &StatusChange{Order: updated, Previous: current.Status}, nil
}
