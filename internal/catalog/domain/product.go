package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dejobratic/storefront/internal/apperrors"
	"github.com/shopspring/decimal"
)

// maxPrice is the first value a NUMERIC(12,2) column cannot hold.
var maxPrice = decimal.New(1, 10)

// Product is a catalog entry. Stock is never negative.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	Image       string          `json:"image"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Validate ensures the product adheres to catalog constraints.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return apperrors.Validation("name is required")
	}
	if p.Price.IsNegative() {
		return apperrors.Validation("price must not be negative")
	}
	if !p.Price.Equal(p.Price.Round(2)) {
		return apperrors.Validation("price must have at most two decimal places")
	}
	if p.Price.GreaterThanOrEqual(maxPrice) {
		return apperrors.Validation("price is too large")
	}
	if p.Stock < 0 {
		return apperrors.Validation("stock must not be negative")
	}
	return nil
}

// ProductPatch carries a partial update. Nil fields are left unchanged. Stock is
// absent on purpose: it only moves through the conditional decrement and increment.
type ProductPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
	Image       *string          `json:"image"`
}

// Apply returns a copy of p with the patch applied.
func (p Product) Apply(patch ProductPatch, now time.Time) Product {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	p.UpdatedAt = now
	return p
}

// ProductNotFound reports a missing product by identifier.
func ProductNotFound(id string) error {
	return apperrors.WithMetadata(
		apperrors.KindNotFound,
		fmt.Sprintf("product not found: %s", id),
		map[string]string{"product_id": id},
	)
}

// InsufficientStock reports that a product cannot cover the requested quantity.
func InsufficientStock(id string, available, requested int) error {
	return apperrors.WithMetadata(
		apperrors.KindInsufficientStock,
		fmt.Sprintf("insufficient stock for product %s: available %d, requested %d", id, available, requested),
		map[string]string{
			"product_id": id,
			"available":  strconv.Itoa(available),
			"requested":  strconv.Itoa(requested),
		},
	)
}
