package ports

import (
	"context"

	"github.com/dejobratic/storefront/internal/catalog/domain"
)

// ProductRepository exposes catalog persistence. Missing products are reported
// with domain.ProductNotFound.
type ProductRepository interface {
	Create(ctx context.Context, product domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// GetByIDs returns the products found among ids. Missing ids are omitted.
	GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Product, error)
	Update(ctx context.Context, product domain.Product) error
	Delete(ctx context.Context, id string) error

	// DecrementStock subtracts qty only if at least qty units are in stock.
	// It reports false, without error, when the condition does not hold.
	DecrementStock(ctx context.Context, id string, qty int) (bool, error)
	IncrementStock(ctx context.Context, id string, qty int) error
}

// ListFilter narrows product listings by category and pagination.
type ListFilter struct {
	Category string
	Page     int
	PageSize int
}
