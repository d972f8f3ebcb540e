package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dejobratic/storefront/internal/apperrors"
	"github.com/dejobratic/storefront/internal/database"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

// Repository provides an in-memory store useful for local development and tests.
// Writes register their inverse with database.RecordUndo.
type Repository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

// NewRepository constructs a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{orders: make(map[string]domain.Order)}
}

// Create stores a new order instance.
func (r *Repository) Create(ctx context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[order.ID]; exists {
		return apperrors.New(apperrors.KindConflict, "order already exists")
	}
	r.orders[order.ID] = clone(order)
	database.RecordUndo(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.orders, order.ID)
	})
	return nil
}

// GetByID fetches a single order by identifier.
func (r *Repository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, domain.OrderNotFound(id)
	}
	found := clone(order)
	return &found, nil
}

// List returns orders newest first respecting the provided filter. Pagination is 1-based.
func (r *Repository) List(_ context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Order
	for _, order := range r.orders {
		if filter.UserID != "" && order.UserID != filter.UserID {
			continue
		}
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		result = append(result, clone(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	start := (page - 1) * pageSize
	if start >= len(result) {
		return []domain.Order{}, nil
	}
	end := min(start+pageSize, len(result))

	return result[start:end], nil
}

// Update replaces the mutable fields of an order when its version matches.
func (r *Repository) Update(ctx context.Context, order domain.Order, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, ok := r.orders[order.ID]
	if !ok {
		return domain.OrderNotFound(order.ID)
	}
	if previous.Version != expectedVersion {
		return apperrors.New(apperrors.KindConflict, "order was modified concurrently")
	}
	if txID := order.PaymentTransactionID; txID != "" && txID != previous.PaymentTransactionID {
		for id, other := range r.orders {
			if id != order.ID && other.PaymentTransactionID == txID {
				return domain.TransactionAlreadyUsed(txID)
			}
		}
	}

	updated := previous
	updated.Status = order.Status
	updated.PaymentStatus = order.PaymentStatus
	updated.PaymentTransactionID = order.PaymentTransactionID
	updated.Version = order.Version
	updated.UpdatedAt = order.UpdatedAt
	r.orders[order.ID] = updated

	database.RecordUndo(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.orders[order.ID] = previous
	})
	return nil
}

func clone(order domain.Order) domain.Order {
	order.Lines = append([]domain.OrderLine(nil), order.Lines...)
	return order
}
