package queries

import (
	"context"
	"strings"

	"github.com/dejobratic/storefront/internal/apperrors"
	"github.com/dejobratic/storefront/internal/identity"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

// ListOrdersQuery lists orders newest first. Mine restricts the listing to the
// actor's own orders; otherwise the actor must be an administrator.
type ListOrdersQuery struct {
	Actor  identity.Identity
	Mine   bool
	Filter ports.ListFilter
}

const maxPageSize = 200

func (q ListOrdersQuery) Validate() error {
	if q.Filter.Page < 0 || q.Filter.PageSize < 0 {
		return apperrors.Validation("page and page_size must not be negative")
	}
	if q.Filter.PageSize > maxPageSize {
		return apperrors.Validation("page_size must not exceed 200")
	}
	if q.Mine && strings.TrimSpace(q.Actor.UserID) == "" {
		return apperrors.Validation("user id is required")
	}
	return nil
}

type ListOrdersQueryHandler struct {
	repo ports.OrderRepository
	enricher
}

func NewListOrdersQueryHandler(repo ports.OrderRepository, catalog ports.Catalog, users ports.UserDirectory) *ListOrdersQueryHandler {
	return &ListOrdersQueryHandler{repo: repo, enricher: enricher{catalog: catalog, users: users}}
}

func (h *ListOrdersQueryHandler) Handle(ctx context.Context, query ListOrdersQuery) ([]OrderView, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	filter := query.Filter
	if query.Mine {
		filter.UserID = query.Actor.UserID
	} else if !query.Actor.IsAdmin() {
		return nil, apperrors.Forbidden("administrator role required")
	}

	orders, err := h.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Classify(err)
	}

	views, err := h.views(ctx, orders, !query.Mine)
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	return views, nil
}
