package app

import (
	"context"
	"strings"
	"time"

	"github.com/dejobratic/storefront/internal/apperrors"
	"github.com/dejobratic/storefront/internal/catalog/domain"
	"github.com/dejobratic/storefront/internal/catalog/ports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service bundles catalog use cases. Authorization is enforced by the HTTP layer.
type Service struct {
	repo ports.ProductRepository
	now  func() time.Time
}

// NewService wires required dependencies.
func NewService(repo ports.ProductRepository) *Service {
	return &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateProductInput captures payload for creating a product.
type CreateProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	Image       string          `json:"image"`
}

// CreateProduct validates and stores a new product.
func (s *Service) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	now := s.now()
	product := domain.Product{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		Stock:       input.Stock,
		Image:       input.Image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, apperrors.Classify(err)
	}
	return &product, nil
}

// GetProduct retrieves a product by ID.
func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.Validation("product id is required")
	}
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	return product, nil
}

// ListProducts returns products using a filter.
func (s *Service) ListProducts(ctx context.Context, filter ports.ListFilter) ([]domain.Product, error) {
	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	return products, nil
}

// UpdateProduct applies a partial update; fields absent from the patch keep their value.
func (s *Service) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	current, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := current.Apply(patch, s.now())
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, apperrors.Classify(err)
	}
	// Re-read so the response carries the stock as of the write.
	return s.GetProduct(ctx, id)
}

// DeleteProduct removes a product. Existing orders keep their line snapshots.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.Validation("product id is required")
	}
	return apperrors.Classify(s.repo.Delete(ctx, id))
}

// AdjustStock applies an administrative stock correction. Negative deltas use the
// conditional decrement so stock never drops below zero.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error) {
	if delta == 0 {
		return nil, apperrors.Validation("delta must not be zero")
	}

	if delta > 0 {
		if err := s.repo.IncrementStock(ctx, id, delta); err != nil {
			return nil, apperrors.Classify(err)
		}
		return s.GetProduct(ctx, id)
	}

	ok, err := s.repo.DecrementStock(ctx, id, -delta)
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	if !ok {
		current, err := s.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, domain.InsufficientStock(id, current.Stock, -delta)
	}
	return s.GetProduct(ctx, id)
}
