package queries

import (
	"context"
	"strings"

	"github.com/dejobratic/storefront/internal/apperrors"
	"github.com/dejobratic/storefront/internal/identity"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

// GetOrderQuery represents a request to retrieve an order by its ID.
type GetOrderQuery struct {
	OrderID string
	Actor   identity.Identity
}

// Validate ensures the query has valid parameters.
func (q GetOrderQuery) Validate() error {
	if strings.TrimSpace(q.OrderID) == "" {
		return apperrors.Validation("order id is required")
	}
	return nil
}

// GetOrderQueryHandler returns one order to its owner or to an administrator.
type GetOrderQueryHandler struct {
	repo ports.OrderRepository
	enricher
}

// NewGetOrderQueryHandler constructs a GetOrderQueryHandler.
func NewGetOrderQueryHandler(repo ports.OrderRepository, catalog ports.Catalog, users ports.UserDirectory) *GetOrderQueryHandler {
	return &GetOrderQueryHandler{repo: repo, enricher: enricher{catalog: catalog, users: users}}
}

// Handle executes the query. Owner details are included for every caller.
func (h *GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (*OrderView, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	order, err := h.repo.GetByID(ctx, query.OrderID)
	if err != nil {
		return nil, apperrors.Classify(err)
	}

	if !query.Actor.CanAccess(order.UserID) {
		return nil, apperrors.Forbidden("not authorized to view this order")
	}

	views, err := h.views(ctx, []domain.Order{*order}, true)
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	return &views[0], nil
}
