package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dejobratic/storefront/internal/catalog/domain"
	"github.com/dejobratic/storefront/internal/catalog/ports"
	"github.com/dejobratic/storefront/internal/database"
)

// Repository provides an in-memory catalog useful for local development and tests.
// Mutations register their inverse with database.RecordUndo so they roll back with
// the surrounding MemoryTransactor transaction.
type Repository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

// NewRepository constructs a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{products: make(map[string]domain.Product)}
}

// Create stores a new product instance.
func (r *Repository) Create(ctx context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = product
	database.RecordUndo(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.products, product.ID)
	})
	return nil
}

// GetByID fetches a single product by identifier.
func (r *Repository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	product, ok := r.products[id]
	if !ok {
		return nil, domain.ProductNotFound(id)
	}
	return &product, nil
}

// GetByIDs fetches every product found among ids.
func (r *Repository) GetByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if product, ok := r.products[id]; ok {
			result = append(result, product)
		}
	}
	return result, nil
}

// List returns products ordered by name. Pagination is 1-based.
func (r *Repository) List(_ context.Context, filter ports.ListFilter) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Product
	for _, product := range r.products {
		if filter.Category != "" && product.Category != filter.Category {
			continue
		}
		result = append(result, product)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name == result[j].Name {
			return result[i].ID < result[j].ID
		}
		return result[i].Name < result[j].Name
	})

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	start := (page - 1) * pageSize
	if start >= len(result) {
		return []domain.Product{}, nil
	}
	end := min(start+pageSize, len(result))

	return append([]domain.Product(nil), result[start:end]...), nil
}

// Update replaces the descriptive fields of a stored product and keeps its
// current stock.
func (r *Repository) Update(ctx context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	previous, ok := r.products[product.ID]
	if !ok {
		return domain.ProductNotFound(product.ID)
	}
	product.Stock = previous.Stock
	r.products[product.ID] = product
	database.RecordUndo(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if current, ok := r.products[product.ID]; ok {
			previous.Stock = current.Stock
			r.products[product.ID] = previous
		}
	})
	return nil
}

// Delete removes a product.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	previous, ok := r.products[id]
	if !ok {
		return domain.ProductNotFound(id)
	}
	delete(r.products, id)
	database.RecordUndo(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.products[id] = previous
	})
	return nil
}

// DecrementStock subtracts qty under the repository lock, so the check and the
// write are a single step for concurrent callers.
func (r *Repository) DecrementStock(ctx context.Context, id string, qty int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	product, ok := r.products[id]
	if !ok {
		return false, domain.ProductNotFound(id)
	}
	if product.Stock < qty {
		return false, nil
	}
	product.Stock -= qty
	r.products[id] = product
	database.RecordUndo(ctx, func() { r.restock(id, qty) })
	return true, nil
}

// IncrementStock adds qty to a product's stock.
func (r *Repository) IncrementStock(ctx context.Context, id string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	product, ok := r.products[id]
	if !ok {
		return domain.ProductNotFound(id)
	}
	product.Stock += qty
	r.products[id] = product
	database.RecordUndo(ctx, func() { r.restock(id, -qty) })
	return nil
}

func (r *Repository) restock(id string, qty int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if product, ok := r.products[id]; ok {
		product.Stock += qty
		r.products[id] = product
	}
}
