package postgres

import (
	"context"

	"github.com/dejobratic/storefront/internal/database"
	"github.com/dejobratic/storefront/internal/identity"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Directory struct {
	pool *pgxpool.Pool
}

func NewDirectory(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool}
}

func (d *Directory) Upsert(ctx context.Context, id identity.Identity) error {
	query := `
		INSERT INTO users (id, name, email, role, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
			email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
			role = EXCLUDED.role,
			updated_at = now()
	`

	_, err := database.Conn(ctx, d.pool).Exec(ctx, query, id.UserID, id.Name, id.Email, string(id.Role))
	if err != nil {
		return database.WrapError("upsert user", err)
	}
	return nil
}

func (d *Directory) Lookup(ctx context.Context, userIDs []string) (map[string]identity.Identity, error) {
	result := make(map[string]identity.Identity, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	rows, err := database.Conn(ctx, d.pool).Query(ctx,
		`SELECT id, name, email, role FROM users WHERE id = ANY($1)`, userIDs)
	if err != nil {
		return nil, database.WrapError("select users", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			user identity.Identity
			role string
		)
		if err := rows.Scan(&user.UserID, &user.Name, &user.Email, &role); err != nil {
			return nil, database.WrapError("scan user", err)
		}
		user.Role = identity.Role(role)
		result[user.UserID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, database.WrapError("iterate users", err)
	}

	return result, nil
}
