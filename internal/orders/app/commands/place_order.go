package commands

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dejobratic/storefront/internal/apperrors"
	catalogdomain "github.com/dejobratic/storefront/internal/catalog/domain"
	"github.com/dejobratic/storefront/internal/identity"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
	"github.com/google/uuid"
)

// CartLine is a requested product and quantity.
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type PlaceOrderCommand struct {
	Customer        identity.Identity
	Lines           []CartLine
	ShippingAddress string
	PaymentMethod   string
}

func (c PlaceOrderCommand) Validate() error {
	if strings.TrimSpace(c.Customer.UserID) == "" {
		return apperrors.Validation("user id is required")
	}
	if len(c.Lines) == 0 {
		return apperrors.Validation("order must contain at least one line")
	}
	for _, line := range c.Lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return apperrors.Validation("product id is required on every line")
		}
		if line.Quantity < 1 {
			return apperrors.Validation("quantity must be at least 1")
		}
	}
	if strings.TrimSpace(c.ShippingAddress) == "" {
		return apperrors.Validation("shipping address is required")
	}
	if strings.TrimSpace(c.PaymentMethod) == "" {
		return apperrors.Validation("payment method is required")
	}
	return nil
}

// requestedQuantities sums quantities per product, so a product listed on several
// lines is checked against its stock once.
func (c PlaceOrderCommand) requestedQuantities() map[string]int {
	requested := make(map[string]int, len(c.Lines))
	for _, line := range c.Lines {
		requested[strings.TrimSpace(line.ProductID)] += line.Quantity
	}
	return requested
}

type PlaceOrderHandler interface {
	Handle(ctx context.Context, cmd PlaceOrderCommand) (*domain.Order, error)
}

type PlaceOrderCommandHandler struct {
	repo    ports.OrderRepository
	catalog ports.Catalog
	tx      ports.Transactor
	users   ports.UserDirectory
	events  ports.EventBus
	logger  *slog.Logger
	retry   RetryPolicy
	now     func() time.Time
}

func NewPlaceOrderCommandHandler(
	repo ports.OrderRepository,
	catalog ports.Catalog,
	tx ports.Transactor,
	users ports.UserDirectory,
	events ports.EventBus,
	logger *slog.Logger,
	retry RetryPolicy,
) *PlaceOrderCommandHandler {
	return &PlaceOrderCommandHandler{
		repo:    repo,
		catalog: catalog,
		tx:      tx,
		users:   users,
		events:  events,
		logger:  logger,
		retry:   retry,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Handle reserves stock for every line and stores the order in one transaction.
// Either every product is decremented and the order exists, or nothing changed.
func (h *PlaceOrderCommandHandler) Handle(ctx context.Context, cmd PlaceOrderCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	order, err := retryOnConflict(ctx, h.retry, func() (*domain.Order, error) {
		var placed *domain.Order
		err := h.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			placed, err = h.place(ctx, cmd)
			return err
		})
		return placed, err
	})
	if err != nil {
		return nil, apperrors.Classify(err)
	}

	if err := h.users.Upsert(ctx, cmd.Customer); err != nil {
		h.logger.WarnContext(ctx, "failed to record order owner", "error", err, "user_id", cmd.Customer.UserID)
	}

	if err := h.events.PublishOrderPlaced(ctx, *order); err != nil {
		h.logger.ErrorContext(ctx, "order placed but event publish failed", "error", err, "order_id", order.ID)
	}

	return order, nil
}

func (h *PlaceOrderCommandHandler) place(ctx context.Context, cmd PlaceOrderCommand) (*domain.Order, error) {
	requested := cmd.requestedQuantities()

	// Ascending id order keeps row locks acquired in the same sequence by every placement.
	productIDs := make([]string, 0, len(requested))
	for id := range requested {
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)

	snapshots := make(map[string]ports.ProductSnapshot, len(productIDs))
	for _, id := range productIDs {
		product, err := h.catalog.FindProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		if product.Stock < requested[id] {
			return nil, catalogdomain.InsufficientStock(id, product.Stock, requested[id])
		}
		snapshots[id] = *product
	}

	for _, id := range productIDs {
		ok, err := h.catalog.DecrementStock(ctx, id, requested[id])
		if err != nil {
			return nil, err
		}
		if !ok {
			available := 0
			if current, err := h.catalog.FindProduct(ctx, id); err == nil {
				available = current.Stock
			}
			return nil, catalogdomain.InsufficientStock(id, available, requested[id])
		}
	}

	lines := make([]domain.OrderLine, 0, len(cmd.Lines))
	for _, line := range cmd.Lines {
		product := snapshots[strings.TrimSpace(line.ProductID)]
		lines = append(lines, domain.OrderLine{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  line.Quantity,
		})
	}

	now := h.now()
	order := domain.Order{
		ID:              uuid.NewString(),
		UserID:          cmd.Customer.UserID,
		Lines:           lines,
		ShippingAddress: strings.TrimSpace(cmd.ShippingAddress),
		PaymentMethod:   strings.TrimSpace(cmd.PaymentMethod),
		TotalAmount:     domain.ComputeTotal(lines),
		Status:          domain.StatusPending,
		PaymentStatus:   domain.PaymentPending,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	if err := h.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	return &order, nil
}
