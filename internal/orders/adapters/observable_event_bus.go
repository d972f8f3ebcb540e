package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/storefront/internal/kafka"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
	"github.com/dejobratic/storefront/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableEventBus struct {
	bus     ports.EventBus
	metrics *kafka.Metrics
}

func NewObservableEventBus(bus ports.EventBus, metrics *kafka.Metrics) *ObservableEventBus {
	return &ObservableEventBus{
		bus:     bus,
		metrics: metrics,
	}
}

func (e *ObservableEventBus) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	return e.observe(ctx, "EventBus.PublishOrderPlaced", kafka.EventOrderPlaced, order.ID, func(ctx context.Context) error {
		return e.bus.PublishOrderPlaced(ctx, order)
	})
}

func (e *ObservableEventBus) PublishOrderStatusChanged(ctx context.Context, order domain.Order, previous domain.OrderStatus) error {
	return e.observe(ctx, "EventBus.PublishOrderStatusChanged", kafka.EventOrderStatusChanged, order.ID, func(ctx context.Context) error {
		return e.bus.PublishOrderStatusChanged(ctx, order, previous)
	}, attribute.String("order.previous_status", string(previous)), attribute.String("order.status", string(order.Status)))
}

func (e *ObservableEventBus) PublishPaymentCompleted(ctx context.Context, order domain.Order) error {
	return e.observe(ctx, "EventBus.PublishPaymentCompleted", kafka.EventPaymentCompleted, order.ID, func(ctx context.Context) error {
		return e.bus.PublishPaymentCompleted(ctx, order)
	})
}

func (e *ObservableEventBus) observe(
	ctx context.Context,
	spanName, eventType, orderID string,
	publish func(ctx context.Context) error,
	attrs ...attribute.KeyValue,
) error {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	telemetry.AddSpanAttributes(span, append(attrs,
		attribute.String("order.id", orderID),
		attribute.String("event.type", eventType),
	)...)

	start := time.Now()
	err := publish(ctx)
	e.metrics.RecordPublish(ctx, eventType, time.Since(start).Seconds(), err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
