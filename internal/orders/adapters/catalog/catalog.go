// Package catalog adapts the product catalog module to the orders Catalog port.
package catalog

import (
	"context"

	catalogdomain "github.com/dejobratic/storefront/internal/catalog/domain"
	catalogports "github.com/dejobratic/storefront/internal/catalog/ports"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

type Adapter struct {
	products catalogports.ProductRepository
}

func NewAdapter(products catalogports.ProductRepository) *Adapter {
	return &Adapter{products: products}
}

func (a *Adapter) FindProduct(ctx context.Context, id string) (*ports.ProductSnapshot, error) {
	product, err := a.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	snapshot := toSnapshot(*product)
	return &snapshot, nil
}

func (a *Adapter) FindProducts(ctx context.Context, ids []string) (map[string]ports.ProductSnapshot, error) {
	products, err := a.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	result := make(map[string]ports.ProductSnapshot, len(products))
	for _, product := range products {
		result[product.ID] = toSnapshot(product)
	}
	return result, nil
}

func (a *Adapter) DecrementStock(ctx context.Context, id string, qty int) (bool, error) {
	return a.products.DecrementStock(ctx, id, qty)
}

func (a *Adapter) IncrementStock(ctx context.Context, id string, qty int) error {
	return a.products.IncrementStock(ctx, id, qty)
}

func toSnapshot(p catalogdomain.Product) ports.ProductSnapshot {
	return ports.ProductSnapshot{
		ID:    p.ID,
		Name:  p.Name,
		Image: p.Image,
		Price: p.Price,
		Stock: p.Stock,
	}
}
