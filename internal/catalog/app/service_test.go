package app_test

import (
	"context"
	"testing"

	"github.com/dejobratic/storefront/internal/apperrors"
	"github.com/dejobratic/storefront/internal/catalog/adapters/memory"
	"github.com/dejobratic/storefront/internal/catalog/app"
	"github.com/dejobratic/storefront/internal/catalog/domain"
	"github.com/dejobratic/storefront/internal/catalog/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *app.Service {
	t.Helper()
	return app.NewService(memory.NewRepository())
}

func createMug(t *testing.T, svc *app.Service, stock int) *domain.Product {
	t.Helper()
	product, err := svc.CreateProduct(context.Background(), app.CreateProductInput{
		Name:     "Mug",
		Price:    decimal.RequireFromString("4.50"),
		Category: "kitchen",
		Stock:    stock,
	})
	require.NoError(t, err)
	return product
}

func TestCreateProduct(t *testing.T) {
	t.Run("assigns id and timestamps", func(t *testing.T) {
		svc := newService(t)
		product := createMug(t, svc, 5)

		assert.NotEmpty(t, product.ID)
		assert.False(t, product.CreatedAt.IsZero())
		assert.Equal(t, product.CreatedAt, product.UpdatedAt)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.CreateProduct(context.Background(), app.CreateProductInput{
			Name:  "Mug",
			Price: decimal.NewFromInt(-1),
		})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestUpdateProductPartial(t *testing.T) {
	svc := newService(t)
	product := createMug(t, svc, 5)

	name := "Travel mug"
	updated, err := svc.UpdateProduct(context.Background(), product.ID, domain.ProductPatch{Name: &name})
	require.NoError(t, err)

	assert.Equal(t, "Travel mug", updated.Name)
	assert.True(t, updated.Price.Equal(product.Price))
	assert.Equal(t, 5, updated.Stock)

	_, err = svc.UpdateProduct(context.Background(), "missing", domain.ProductPatch{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// reservingRepository lets a placement take stock between the read and the
// write of a product edit.
type reservingRepository struct {
	*memory.Repository
	reserve int
}

func (r *reservingRepository) Update(ctx context.Context, product domain.Product) error {
	if r.reserve > 0 {
		if _, err := r.DecrementStock(ctx, product.ID, r.reserve); err != nil {
			return err
		}
		r.reserve = 0
	}
	return r.Repository.Update(ctx, product)
}

func TestUpdateProductKeepsConcurrentReservations(t *testing.T) {
	ctx := context.Background()
	repo := &reservingRepository{Repository: memory.NewRepository()}
	svc := app.NewService(repo)
	product := createMug(t, svc, 5)

	repo.reserve = 3
	name := "Travel mug"
	updated, err := svc.UpdateProduct(ctx, product.ID, domain.ProductPatch{Name: &name})
	require.NoError(t, err)

	assert.Equal(t, "Travel mug", updated.Name)
	assert.Equal(t, 2, updated.Stock)

	current, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, current.Stock)
}

func TestCreateProductRejectsSubCentPrice(t *testing.T) {
	_, err := newService(t).CreateProduct(context.Background(), app.CreateProductInput{
		Name:  "Mug",
		Price: decimal.RequireFromString("4.555"),
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAdjustStock(t *testing.T) {
	ctx := context.Background()

	t.Run("increments", func(t *testing.T) {
		svc := newService(t)
		product := createMug(t, svc, 5)

		adjusted, err := svc.AdjustStock(ctx, product.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, 8, adjusted.Stock)
	})

	t.Run("decrements down to zero", func(t *testing.T) {
		svc := newService(t)
		product := createMug(t, svc, 5)

		adjusted, err := svc.AdjustStock(ctx, product.ID, -5)
		require.NoError(t, err)
		assert.Equal(t, 0, adjusted.Stock)
	})

	t.Run("refuses to go negative", func(t *testing.T) {
		svc := newService(t)
		product := createMug(t, svc, 2)

		_, err := svc.AdjustStock(ctx, product.ID, -3)
		assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

		current, err := svc.GetProduct(ctx, product.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, current.Stock)
	})

	t.Run("rejects zero delta", func(t *testing.T) {
		svc := newService(t)
		product := createMug(t, svc, 2)

		_, err := svc.AdjustStock(ctx, product.ID, 0)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestDeleteAndList(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	mug := createMug(t, svc, 1)
	_, err := svc.CreateProduct(ctx, app.CreateProductInput{Name: "Plate", Price: decimal.NewFromInt(3), Category: "dining"})
	require.NoError(t, err)

	kitchen, err := svc.ListProducts(ctx, ports.ListFilter{Category: "kitchen"})
	require.NoError(t, err)
	require.Len(t, kitchen, 1)
	assert.Equal(t, mug.ID, kitchen[0].ID)

	require.NoError(t, svc.DeleteProduct(ctx, mug.ID))
	assert.ErrorIs(t, svc.DeleteProduct(ctx, mug.ID), apperrors.ErrNotFound)

	all, err := svc.ListProducts(ctx, ports.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
