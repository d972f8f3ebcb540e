package ports

import (
	"context"

	"github.com/dejobratic/storefront/internal/orders/domain"
)

// OrderRepository exposes persistence operations required by the application layer.
// Missing orders are reported with domain.OrderNotFound.
type OrderRepository interface {
	Create(ctx context.Context, order domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// List returns orders newest first.
	List(ctx context.Context, filter ListFilter) ([]domain.Order, error)
	// Update persists status, payment fields and timestamps of order, provided the
	// stored version still equals expectedVersion. It fails with a conflict otherwise.
	Update(ctx context.Context, order domain.Order, expectedVersion int) error
}

// ListFilter narrows list queries by owner, status and pagination.
type ListFilter struct {
	UserID   string
	Status   *domain.OrderStatus
	Page     int
	PageSize int
}

// Transactor runs fn inside one store transaction, committing only when fn returns nil.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
