package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dejobratic/storefront/internal/catalog/domain"
	"github.com/dejobratic/storefront/internal/catalog/ports"
	"github.com/dejobratic/storefront/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository stores products in Postgres. Every method joins the transaction
// carried by ctx, if any.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, name, description, price::text, category, stock, image, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, product domain.Product) error {
	query := `
		INSERT INTO products (id, name, description, price, category, stock, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9)
	`

	_, err := database.Conn(ctx, r.pool).Exec(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.Price.String(),
		product.Category,
		product.Stock,
		product.Image,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return database.WrapError("insert product", err)
	}

	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(database.Conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ProductNotFound(id)
		}
		return nil, database.WrapError("select product", err)
	}

	return product, nil
}

func (r *Repository) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	products := []domain.Product{}
	if len(ids) == 0 {
		return products, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	rows, err := database.Conn(ctx, r.pool).Query(ctx, query, ids)
	if err != nil {
		return nil, database.WrapError("query products by id", err)
	}
	defer rows.Close()

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

func (r *Repository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Product, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE ($1 = '' OR category = $1)
		ORDER BY name, id
		LIMIT $2 OFFSET $3
	`

	rows, err := database.Conn(ctx, r.pool).Query(ctx, query, filter.Category, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, database.WrapError("query products", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

// Update writes the descriptive fields. Stock is left to the conditional
// decrement and increment so a concurrent reservation is never overwritten.
func (r *Repository) Update(ctx context.Context, product domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4::numeric, category = $5, image = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := database.Conn(ctx, r.pool).Exec(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.Price.String(),
		product.Category,
		product.Image,
		product.UpdatedAt,
	)
	if err != nil {
		return database.WrapError("update product", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ProductNotFound(product.ID)
	}

	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := database.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return database.WrapError("delete product", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ProductNotFound(id)
	}

	return nil
}

// DecrementStock is a single conditional UPDATE; the row lock it takes is held
// until the surrounding transaction ends, which serializes concurrent reservations
// of the same product.
func (r *Repository) DecrementStock(ctx context.Context, id string, qty int) (bool, error) {
	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
	`

	conn := database.Conn(ctx, r.pool)
	result, err := conn.Exec(ctx, query, id, qty)
	if err != nil {
		return false, database.WrapError("decrement stock", err)
	}

	if result.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, database.WrapError("check product", err)
	}
	if !exists {
		return false, domain.ProductNotFound(id)
	}

	return false, nil
}

func (r *Repository) IncrementStock(ctx context.Context, id string, qty int) error {
	query := `
		UPDATE products
		SET stock = stock + $2, updated_at = now()
		WHERE id = $1
	`

	result, err := database.Conn(ctx, r.pool).Exec(ctx, query, id, qty)
	if err != nil {
		return database.WrapError("increment stock", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ProductNotFound(id)
	}

	return nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		product domain.Product
		price   string
	)
	if err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&price,
		&product.Category,
		&product.Stock,
		&product.Image,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	product.Price = parsed

	return &product, nil
}
