package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// ProductSnapshot is the part of a product an order needs at placement time.
type ProductSnapshot struct {
	ID    string
	Name  string
	Image string
	Price decimal.Decimal
	Stock int
}

// Catalog is the view of the product catalog used by order placement.
type Catalog interface {
	FindProduct(ctx context.Context, id string) (*ProductSnapshot, error)
	// FindProducts resolves many products at once. Missing ids are omitted.
	FindProducts(ctx context.Context, ids []string) (map[string]ProductSnapshot, error)
	// DecrementStock subtracts qty only when enough stock remains and reports whether it did.
	DecrementStock(ctx context.Context, id string, qty int) (bool, error)
	IncrementStock(ctx context.Context, id string, qty int) error
}
