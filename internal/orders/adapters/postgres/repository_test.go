//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dejobratic/storefront/internal/apperrors"
	"github.com/dejobratic/storefront/internal/database"
	"github.com/dejobratic/storefront/internal/database/dbtest"
	"github.com/dejobratic/storefront/internal/orders/adapters/postgres"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
	"github.com/shopspring/decimal"
)

func newOrder(id, userID string, createdAt time.Time) domain.Order {
	lines := []domain.OrderLine{
		{ProductID: "p-1", Name: "Mug", Price: decimal.RequireFromString("4.50"), Quantity: 3},
		{ProductID: "p-2", Name: "Tea", Price: decimal.RequireFromString("2.25"), Quantity: 1},
	}
	return domain.Order{
		ID:              id,
		UserID:          userID,
		Lines:           lines,
		ShippingAddress: "1 Main St",
		PaymentMethod:   "card",
		TotalAmount:     domain.ComputeTotal(lines),
		Status:          domain.StatusPending,
		PaymentStatus:   domain.PaymentPending,
		Version:         1,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

func TestRepositoryCreateAndGet(t *testing.T) {
	repo := postgres.NewRepository(dbtest.NewPool(t))
	ctx := context.Background()

	order := newOrder("order-1", "user-1", time.Now().UTC().Truncate(time.Microsecond))
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	got, err := repo.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to retrieve order: %v", err)
	}

	if got.UserID != order.UserID || got.Status != domain.StatusPending || got.Version != 1 {
		t.Errorf("unexpected order header: %+v", got)
	}
	if !got.TotalAmount.Equal(decimal.RequireFromString("15.75")) {
		t.Errorf("expected total 15.75, got %s", got.TotalAmount)
	}
	if len(got.Lines) != 2 || got.Lines[0].ProductID != "p-1" || got.Lines[1].Quantity != 1 {
		t.Errorf("unexpected lines: %+v", got.Lines)
	}
	if !got.Lines[0].Price.Equal(decimal.RequireFromString("4.50")) {
		t.Errorf("expected price snapshot 4.50, got %s", got.Lines[0].Price)
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRepositoryListNewestFirst(t *testing.T) {
	repo := postgres.NewRepository(dbtest.NewPool(t))
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	fixtures := []domain.Order{
		newOrder("order-1", "user-1", base),
		newOrder("order-2", "user-2", base.Add(time.Second)),
		newOrder("order-3", "user-1", base.Add(2*time.Second)),
	}
	for _, order := range fixtures {
		if err := repo.Create(ctx, order); err != nil {
			t.Fatalf("failed to create order: %v", err)
		}
	}

	mine, err := repo.List(ctx, ports.ListFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("failed to list orders: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != "order-3" || mine[1].ID != "order-1" {
		t.Fatalf("unexpected user listing: %+v", mine)
	}
	if len(mine[0].Lines) != 2 {
		t.Errorf("expected lines to be loaded, got %d", len(mine[0].Lines))
	}

	page, err := repo.List(ctx, ports.ListFilter{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("failed to list orders: %v", err)
	}
	if len(page) != 1 || page[0].ID != "order-1" {
		t.Errorf("unexpected second page: %+v", page)
	}

	status := domain.StatusShipped
	none, err := repo.List(ctx, ports.ListFilter{Status: &status})
	if err != nil {
		t.Fatalf("failed to list orders: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no shipped orders, got %d", len(none))
	}
}

func TestRepositoryUpdateChecksVersion(t *testing.T) {
	repo := postgres.NewRepository(dbtest.NewPool(t))
	ctx := context.Background()

	order := newOrder("order-1", "user-1", time.Now().UTC().Truncate(time.Microsecond))
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	updated := order
	updated.Status = domain.StatusProcessing
	updated.PaymentStatus = domain.PaymentCompleted
	updated.PaymentTransactionID = "tx-1"
	updated.Version = 2

	if err := repo.Update(ctx, updated, 1); err != nil {
		t.Fatalf("failed to update order: %v", err)
	}

	stale := updated
	stale.Status = domain.StatusCancelled
	stale.Version = 2
	if err := repo.Update(ctx, stale, 1); !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("expected conflict for stale version, got %v", err)
	}

	missing := updated
	missing.ID = "missing"
	if err := repo.Update(ctx, missing, 1); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	got, _ := repo.GetByID(ctx, order.ID)
	if got.Status != domain.StatusProcessing || got.PaymentTransactionID != "tx-1" || got.Version != 2 {
		t.Errorf("unexpected order after update: %+v", got)
	}
}

func TestRepositoryUpdateRejectsReusedTransactionID(t *testing.T) {
	repo := postgres.NewRepository(dbtest.NewPool(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	first := newOrder("order-1", "user-1", now)
	second := newOrder("order-2", "user-1", now.Add(time.Second))
	for _, o := range []domain.Order{first, second} {
		if err := repo.Create(ctx, o); err != nil {
			t.Fatalf("failed to create order: %v", err)
		}
	}

	paid := func(o domain.Order) domain.Order {
		o.Status = domain.StatusProcessing
		o.PaymentStatus = domain.PaymentCompleted
		o.PaymentTransactionID = "tx-shared"
		o.Version = 2
		return o
	}

	if err := repo.Update(ctx, paid(first), 1); err != nil {
		t.Fatalf("failed to pay first order: %v", err)
	}
	err := repo.Update(ctx, paid(second), 1)
	if !domain.IsTransactionAlreadyUsed(err) {
		t.Fatalf("expected reused transaction id, got %v", err)
	}

	got, _ := repo.GetByID(ctx, second.ID)
	if got.PaymentStatus != domain.PaymentPending || got.PaymentTransactionID != "" {
		t.Errorf("second order must stay unpaid: %+v", got)
	}
}

func TestRepositoryCreateRollsBackWithTransaction(t *testing.T) {
	pool := dbtest.NewPool(t)
	repo := postgres.NewRepository(pool)
	tx := database.NewTransactor(pool)
	ctx := context.Background()

	order := newOrder("order-1", "user-1", time.Now().UTC().Truncate(time.Microsecond))
	errAbort := errors.New("abort")

	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, order); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("expected abort error, got %v", err)
	}

	if _, err := repo.GetByID(ctx, order.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected rolled back order to be missing, got %v", err)
	}
}
