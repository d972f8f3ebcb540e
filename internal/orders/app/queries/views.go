package queries

import (
	"context"

	"github.com/dejobratic/storefront/internal/identity"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

// LineView is an order line with the product's current catalog details. Name and
// Price remain the placement snapshot; Product is nil when the product was deleted.
type LineView struct {
	domain.OrderLine
	Product *ProductView `json:"product,omitempty"`
}

type ProductView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

type OwnerView struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

// OrderView is an order enriched for presentation.
type OrderView struct {
	domain.Order
	Lines []LineView `json:"lines"`
	Owner *OwnerView `json:"owner,omitempty"`
}

// enricher resolves product and owner details for a batch of orders with one
// lookup per collaborator.
type enricher struct {
	catalog ports.Catalog
	users   ports.UserDirectory
}

func (e enricher) views(ctx context.Context, orders []domain.Order, withOwner bool) ([]OrderView, error) {
	productIDs := make([]string, 0)
	seenProducts := make(map[string]bool)
	userIDs := make([]string, 0)
	seenUsers := make(map[string]bool)
	for _, order := range orders {
		for _, line := range order.Lines {
			if !seenProducts[line.ProductID] {
				seenProducts[line.ProductID] = true
				productIDs = append(productIDs, line.ProductID)
			}
		}
		if !seenUsers[order.UserID] {
			seenUsers[order.UserID] = true
			userIDs = append(userIDs, order.UserID)
		}
	}

	products, err := e.catalog.FindProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	var owners map[string]identity.Identity
	if withOwner {
		owners, err = e.users.Lookup(ctx, userIDs)
		if err != nil {
			return nil, err
		}
	}

	views := make([]OrderView, 0, len(orders))
	for _, order := range orders {
		view := OrderView{Order: order, Lines: make([]LineView, 0, len(order.Lines))}
		for _, line := range order.Lines {
			lv := LineView{OrderLine: line}
			if product, ok := products[line.ProductID]; ok {
				lv.Product = &ProductView{ID: product.ID, Name: product.Name, Image: product.Image}
			}
			view.Lines = append(view.Lines, lv)
		}
		if withOwner {
			owner := OwnerView{UserID: order.UserID}
			if user, ok := owners[order.UserID]; ok {
				owner.Name = user.Name
				owner.Email = user.Email
			}
			view.Owner = &owner
		}
		views = append(views, view)
	}
	return views, nil
}
