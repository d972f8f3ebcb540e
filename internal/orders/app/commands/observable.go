package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/storefront/internal/apperrors"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/metrics"
	"github.com/dejobratic/storefront/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservablePlaceOrderHandler struct {
	handler PlaceOrderHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservablePlaceOrderHandler(handler PlaceOrderHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservablePlaceOrderHandler {
	return &ObservablePlaceOrderHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservablePlaceOrderHandler) Handle(ctx context.Context, cmd PlaceOrderCommand) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "PlaceOrderCommand.Handle")
	defer span.End()

	start := time.Now()
	outcome := "success"
	defer func() {
		o.metrics.RecordOrderPlacementDuration(ctx, time.Since(start).Seconds())
		o.metrics.RecordOrderPlaced(ctx, outcome)
	}()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.user_id", cmd.Customer.UserID),
		attribute.Int("order.line_count", len(cmd.Lines)),
	)

	o.logger.InfoContext(ctx, "placing order",
		"user_id", cmd.Customer.UserID,
		"lines", len(cmd.Lines),
	)

	order, err := o.handler.Handle(ctx, cmd)
	if err != nil {
		outcome = errorOutcome(err)
		if appErr, ok := apperrors.As(err); ok && appErr.Kind == apperrors.KindInsufficientStock {
			o.metrics.RecordStockReservationFailure(ctx, appErr.Metadata["product_id"])
		}
		telemetry.RecordSpanError(span, err)
		logFailure(ctx, o.logger, "failed to place order", err, "user_id", cmd.Customer.UserID)
		return nil, err
	}

	total, _ := order.TotalAmount.Float64()
	o.metrics.RecordOrderValue(ctx, total)

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", order.ID),
		attribute.String("order.total_amount", order.TotalAmount.String()),
		attribute.String("order.status", string(order.Status)),
	)

	o.logger.InfoContext(ctx, "order placed",
		"order_id", order.ID,
		"user_id", order.UserID,
		"total_amount", order.TotalAmount.String(),
	)

	telemetry.SetSpanSuccess(span)
	return order, nil
}

type ObservableUpdateStatusHandler struct {
	handler UpdateStatusHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableUpdateStatusHandler(handler UpdateStatusHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableUpdateStatusHandler {
	return &ObservableUpdateStatusHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableUpdateStatusHandler) Handle(ctx context.Context, cmd UpdateStatusCommand) (*StatusChange, error) {
	ctx, span := telemetry.StartSpan(ctx, "UpdateStatusCommand.Handle")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.target_status", cmd.Status),
	)

	change, err := o.handler.Handle(ctx, cmd)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		logFailure(ctx, o.logger, "failed to update order status", err, "order_id", cmd.OrderID, "status", cmd.Status)
		return nil, err
	}

	o.metrics.RecordStatusTransition(ctx, string(change.Previous), string(change.Order.Status))
	o.logger.InfoContext(ctx, "order status updated",
		"order_id", change.Order.ID,
		"from", change.Previous,
		"to", change.Order.Status,
		"actor", cmd.Actor.UserID,
	)

	telemetry.SetSpanSuccess(span)
	return change, nil
}

type ObservableCompletePaymentHandler struct {
	handler CompletePaymentHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableCompletePaymentHandler(handler CompletePaymentHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableCompletePaymentHandler {
	return &ObservableCompletePaymentHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableCompletePaymentHandler) Handle(ctx context.Context, cmd CompletePaymentCommand) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "CompletePaymentCommand.Handle")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", cmd.OrderID),
		attribute.String("payment.transaction_id", cmd.TransactionID),
	)

	order, err := o.handler.Handle(ctx, cmd)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		logFailure(ctx, o.logger, "failed to complete payment", err, "order_id", cmd.OrderID)
		return nil, err
	}

	if order.PaymentTransactionID == cmd.TransactionID {
		o.metrics.RecordPaymentCompleted(ctx, order.PaymentMethod)
	}
	o.logger.InfoContext(ctx, "payment completed",
		"order_id", order.ID,
		"transaction_id", cmd.TransactionID,
		"status", order.Status,
	)

	telemetry.SetSpanSuccess(span)
	return order, nil
}

func errorOutcome(err error) string {
	if kind := apperrors.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

// logFailure logs expected business rejections at info level and everything else as errors.
func logFailure(ctx context.Context, logger *slog.Logger, msg string, err error, args ...any) {
	args = append(args, "error", err)
	switch apperrors.KindOf(err) {
	case apperrors.KindUnavailable, "":
		logger.ErrorContext(ctx, msg, args...)
	default:
		logger.InfoContext(ctx, msg, args...)
	}
}
