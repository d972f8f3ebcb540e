package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the business instruments of the orders module.
type Metrics struct {
	ordersPlacedTotal        metric.Int64Counter
	orderPlacementDuration   metric.Float64Histogram
	stockReservationFailures metric.Int64Counter
	statusTransitionsTotal   metric.Int64Counter
	paymentsCompletedTotal   metric.Int64Counter
	orderValue               metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.ordersPlacedTotal, err = meter.Int64Counter(
		"orders_placed_total",
		metric.WithDescription("Total number of order placement attempts by outcome"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders_placed_total counter: %w", err)
	}

	m.orderPlacementDuration, err = meter.Float64Histogram(
		"order_placement_duration_seconds",
		metric.WithDescription("Duration of order placement including stock reservation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_placement_duration histogram: %w", err)
	}

	m.stockReservationFailures, err = meter.Int64Counter(
		"stock_reservation_failures_total",
		metric.WithDescription("Placements rejected because a product lacked stock"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create stock_reservation_failures_total counter: %w", err)
	}

	m.statusTransitionsTotal, err = meter.Int64Counter(
		"order_status_transitions_total",
		metric.WithDescription("Order status transitions by source and target status"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_status_transitions_total counter: %w", err)
	}

	m.paymentsCompletedTotal, err = meter.Int64Counter(
		"order_payments_completed_total",
		metric.WithDescription("Payments confirmed for orders"),
		metric.WithUnit("{payment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_payments_completed_total counter: %w", err)
	}

	m.orderValue, err = meter.Float64Histogram(
		"order_total_amount",
		metric.WithDescription("Total amount of placed orders"),
		metric.WithUnit("{currency}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_total_amount histogram: %w", err)
	}

	return m, nil
}

// RecordOrderPlaced counts a placement attempt. outcome is "success" or the error kind.
func (m *Metrics) RecordOrderPlaced(ctx context.Context, outcome string) {
	m.ordersPlacedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordOrderPlacementDuration(ctx context.Context, durationSeconds float64) {
	m.orderPlacementDuration.Record(ctx, durationSeconds)
}

func (m *Metrics) RecordStockReservationFailure(ctx context.Context, productID string) {
	m.stockReservationFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("product_id", productID),
	))
}

func (m *Metrics) RecordStatusTransition(ctx context.Context, from, to string) {
	m.statusTransitionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

func (m *Metrics) RecordPaymentCompleted(ctx context.Context, paymentMethod string) {
	m.paymentsCompletedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("payment_method", paymentMethod),
	))
}

func (m *Metrics) RecordOrderValue(ctx context.Context, amount float64) {
	m.orderValue.Record(ctx, amount)
}
