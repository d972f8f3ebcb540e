//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/dejobratic/storefront/internal/database/dbtest"
	"github.com/dejobratic/storefront/internal/identity"
)

func TestDirectory_UpsertAndLookup(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory(dbtest.NewPool(t))

	if err := dir.Upsert(ctx, identity.Identity{UserID: "u1", Role: identity.RoleUser, Name: "Ana", Email: "ana@example.com"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	// Token without profile claims must not erase the stored profile.
	if err := dir.Upsert(ctx, identity.Identity{UserID: "u1", Role: identity.RoleUser}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	users, err := dir.Lookup(ctx, []string{"u1", "missing"})
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if got := users["u1"]; got.Name != "Ana" || got.Email != "ana@example.com" {
		t.Errorf("unexpected user %+v", got)
	}
}
