package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dejobratic/storefront/internal/apperrors"
	"github.com/dejobratic/storefront/internal/database"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository stores orders and their lines in Postgres. Every method joins the
// transaction carried by ctx, if any.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orderColumns = `id, user_id, shipping_address, payment_method, total_amount::text, status,
	payment_status, payment_transaction_id, version, created_at, updated_at`

// Create inserts the order and its lines. Callers wrap it in a transaction so a
// failed line insert leaves no partial order behind.
func (r *Repository) Create(ctx context.Context, order domain.Order) error {
	conn := database.Conn(ctx, r.pool)

	query := `
		INSERT INTO orders (id, user_id, shipping_address, payment_method, total_amount, status,
			payment_status, payment_transaction_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11)
	`

	_, err := conn.Exec(ctx, query,
		order.ID,
		order.UserID,
		order.ShippingAddress,
		order.PaymentMethod,
		order.TotalAmount.String(),
		string(order.Status),
		string(order.PaymentStatus),
		order.PaymentTransactionID,
		order.Version,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return database.WrapError("insert order", err)
	}

	batch := &pgx.Batch{}
	for i, line := range order.Lines {
		batch.Queue(`
			INSERT INTO order_lines (order_id, position, product_id, name, price, quantity)
			VALUES ($1, $2, $3, $4, $5::numeric, $6)
		`, order.ID, i, line.ProductID, line.Name, line.Price.String(), line.Quantity)
	}

	results := conn.SendBatch(ctx, batch)
	defer results.Close()
	for range order.Lines {
		if _, err := results.Exec(); err != nil {
			return database.WrapError("insert order line", err)
		}
	}

	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	conn := database.Conn(ctx, r.pool)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(conn.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.OrderNotFound(id)
		}
		return nil, database.WrapError("select order", err)
	}

	orders := []domain.Order{*order}
	if err := r.loadLines(ctx, conn, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

func (r *Repository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR user_id = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`

	var statusFilter, userFilter *string
	if filter.Status != nil {
		s := string(*filter.Status)
		statusFilter = &s
	}
	if filter.UserID != "" {
		userFilter = &filter.UserID
	}

	offset := (page - 1) * pageSize

	conn := database.Conn(ctx, r.pool)
	rows, err := conn.Query(ctx, query, statusFilter, userFilter, pageSize, offset)
	if err != nil {
		return nil, database.WrapError("query orders", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	rows.Close()

	if err := r.loadLines(ctx, conn, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *Repository) Update(ctx context.Context, order domain.Order, expectedVersion int) error {
	query := `
		UPDATE orders
		SET status = $2, payment_status = $3, payment_transaction_id = $4, version = $5, updated_at = $6
		WHERE id = $1 AND version = $7
	`

	conn := database.Conn(ctx, r.pool)
	result, err := conn.Exec(ctx, query,
		order.ID,
		string(order.Status),
		string(order.PaymentStatus),
		order.PaymentTransactionID,
		order.Version,
		order.UpdatedAt,
		expectedVersion,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "idx_orders_payment_transaction") {
			return domain.TransactionAlreadyUsed(order.PaymentTransactionID)
		}
		return database.WrapError("update order", err)
	}

	if result.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, order.ID).Scan(&exists); err != nil {
		return database.WrapError("check order", err)
	}
	if !exists {
		return domain.OrderNotFound(order.ID)
	}
	return apperrors.New(apperrors.KindConflict, "order was modified concurrently")
}

// loadLines fills the lines of every order with a single query.
func (r *Repository) loadLines(ctx context.Context, conn database.Querier, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, order := range orders {
		ids[i] = order.ID
		index[order.ID] = i
		orders[i].Lines = []domain.OrderLine{}
	}

	rows, err := conn.Query(ctx, `
		SELECT order_id, product_id, name, price::text, quantity
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, ids)
	if err != nil {
		return database.WrapError("query order lines", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			price   string
			line    domain.OrderLine
		)
		if err := rows.Scan(&orderID, &line.ProductID, &line.Name, &price, &line.Quantity); err != nil {
			return fmt.Errorf("scan order line: %w", err)
		}
		if line.Price, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("parse line price %q: %w", price, err)
		}
		i := index[orderID]
		orders[i].Lines = append(orders[i].Lines, line)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order lines: %w", err)
	}

	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		order         domain.Order
		total         string
		status        string
		paymentStatus string
	)
	if err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.ShippingAddress,
		&order.PaymentMethod,
		&total,
		&status,
		&paymentStatus,
		&order.PaymentTransactionID,
		&order.Version,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse total %q: %w", total, err)
	}
	order.TotalAmount = parsed
	order.Status = domain.OrderStatus(status)
	order.PaymentStatus = domain.PaymentStatus(paymentStatus)

	return &order, nil
}
