package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/dejobratic/storefront/internal/database"
	"github.com/dejobratic/storefront/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store keeps idempotency records in the idempotency_keys table. Records older
// than ttl are ignored on read; a zero ttl keeps them forever.
type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewStore(pool *pgxpool.Pool, ttl time.Duration) *Store {
	return &Store{pool: pool, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, key string) (*ports.StoredResponse, error) {
	query := `
		SELECT status_code, body, order_id
		FROM idempotency_keys
		WHERE key = $1 AND ($2::bigint = 0 OR created_at > now() - make_interval(secs => $2::bigint))
	`

	var resp ports.StoredResponse
	err := database.Conn(ctx, s.pool).QueryRow(ctx, query, key, int64(s.ttl.Seconds())).Scan(
		&resp.StatusCode,
		&resp.Body,
		&resp.OrderID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, database.WrapError("select idempotency key", err)
	}

	return &resp, nil
}

// Save records the response unless the key is already taken; the first write wins.
// An expired record is replaced.
func (s *Store) Save(ctx context.Context, key string, response ports.StoredResponse) error {
	query := `
		INSERT INTO idempotency_keys (key, status_code, body, order_id, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (key) DO UPDATE SET
			status_code = EXCLUDED.status_code,
			body = EXCLUDED.body,
			order_id = EXCLUDED.order_id,
			created_at = EXCLUDED.created_at
		WHERE $5::bigint > 0 AND idempotency_keys.created_at <= now() - make_interval(secs => $5::bigint)
	`

	body := response.Body
	if body == nil {
		body = []byte{}
	}

	_, err := database.Conn(ctx, s.pool).Exec(ctx, query, key, response.StatusCode, body, response.OrderID, int64(s.ttl.Seconds()))
	if err != nil {
		return database.WrapError("insert idempotency key", err)
	}

	return nil
}
