package app

import (
	"context"
	"log/slog"

	"github.com/dejobratic/storefront/internal/identity"
	"github.com/dejobratic/storefront/internal/orders/app/commands"
	"github.com/dejobratic/storefront/internal/orders/app/queries"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/metrics"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

// Dependencies lists the collaborators of the orders module.
type Dependencies struct {
	Repo    ports.OrderRepository
	Catalog ports.Catalog
	Tx      ports.Transactor
	Users   ports.UserDirectory
	Events  ports.EventBus
	Idem    ports.IdempotencyStore
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Retry   commands.RetryPolicy
}

// Service bundles use cases for handling orders via the API.
type Service struct {
	idemStore       ports.IdempotencyStore
	placeOrder      commands.PlaceOrderHandler
	updateStatus    commands.UpdateStatusHandler
	completePayment commands.CompletePaymentHandler
	getOrder        *queries.GetOrderQueryHandler
	listOrders      *queries.ListOrdersQueryHandler
}

// NewService wires required dependencies.
func NewService(deps Dependencies) *Service {
	place := commands.NewPlaceOrderCommandHandler(deps.Repo, deps.Catalog, deps.Tx, deps.Users, deps.Events, deps.Logger, deps.Retry)
	update := commands.NewUpdateStatusCommandHandler(deps.Repo, deps.Catalog, deps.Tx, deps.Events, deps.Logger, deps.Retry)
	pay := commands.NewCompletePaymentCommandHandler(deps.Repo, deps.Tx, deps.Idem, deps.Events, deps.Logger, deps.Retry)

	return &Service{
		idemStore:       deps.Idem,
		placeOrder:      commands.NewObservablePlaceOrderHandler(place, deps.Logger, deps.Metrics),
		updateStatus:    commands.NewObservableUpdateStatusHandler(update, deps.Logger, deps.Metrics),
		completePayment: commands.NewObservableCompletePaymentHandler(pay, deps.Logger, deps.Metrics),
		getOrder:        queries.NewGetOrderQueryHandler(deps.Repo, deps.Catalog, deps.Users),
		listOrders:      queries.NewListOrdersQueryHandler(deps.Repo, deps.Catalog, deps.Users),
	}
}

// PlaceOrderInput captures payload for placing an order.
type PlaceOrderInput struct {
	Lines           []commands.CartLine `json:"lines"`
	ShippingAddress string              `json:"shipping_address"`
	PaymentMethod   string              `json:"payment_method"`
}

// PlaceOrder reserves stock and stores a new order for customer.
func (s *Service) PlaceOrder(ctx context.Context, customer identity.Identity, input PlaceOrderInput) (*domain.Order, error) {
	return s.placeOrder.Handle(ctx, commands.PlaceOrderCommand{
		Customer:        customer,
		Lines:           input.Lines,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
	})
}

// UpdateStatus moves an order along its lifecycle on behalf of an administrator.
func (s *Service) UpdateStatus(ctx context.Context, actor identity.Identity, orderID, status string) (*domain.Order, error) {
	change, err := s.updateStatus.Handle(ctx, commands.UpdateStatusCommand{
		OrderID: orderID,
		Status:  status,
		Actor:   actor,
	})
	if err != nil {
		return nil, err
	}
	return &change.Order, nil
}

// CompletePayment records a confirmed payment for an order.
func (s *Service) CompletePayment(ctx context.Context, actor identity.Identity, orderID, transactionID string) (*domain.Order, error) {
	return s.completePayment.Handle(ctx, commands.CompletePaymentCommand{
		OrderID:       orderID,
		TransactionID: transactionID,
		Actor:         actor,
	})
}

// GetOrder returns an order to its owner or an administrator.
func (s *Service) GetOrder(ctx context.Context, actor identity.Identity, id string) (*queries.OrderView, error) {
	return s.getOrder.Handle(ctx, queries.GetOrderQuery{OrderID: id, Actor: actor})
}

// ListOrdersForUser returns the actor's own orders, newest first.
func (s *Service) ListOrdersForUser(ctx context.Context, actor identity.Identity, filter ports.ListFilter) ([]queries.OrderView, error) {
	return s.listOrders.Handle(ctx, queries.ListOrdersQuery{Actor: actor, Mine: true, Filter: filter})
}

// ListAllOrders returns every order with owner details. Administrators only.
func (s *Service) ListAllOrders(ctx context.Context, actor identity.Identity, filter ports.ListFilter) ([]queries.OrderView, error) {
	return s.listOrders.Handle(ctx, queries.ListOrdersQuery{Actor: actor, Filter: filter})
}

// SaveIdempotentResponse writes response details for a key.
func (s *Service) SaveIdempotentResponse(ctx context.Context, key string, response ports.StoredResponse) error {
	return s.idemStore.Save(ctx, key, response)
}

// GetIdempotentResponse retrieves previously stored response data.
func (s *Service) GetIdempotentResponse(ctx context.Context, key string) (*ports.StoredResponse, error) {
	return s.idemStore.Get(ctx, key)
}
