package memory

import (
	"context"
	"testing"

	"github.com/dejobratic/storefront/internal/identity"
)

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory()

	_ = dir.Upsert(ctx, identity.Identity{UserID: "u1", Role: identity.RoleUser, Name: "Ana", Email: "ana@example.com"})
	_ = dir.Upsert(ctx, identity.Identity{UserID: "u1", Role: identity.RoleUser})
	_ = dir.Upsert(ctx, identity.Identity{UserID: "u2", Role: identity.RoleAdmin, Name: "Bo"})

	users, err := dir.Lookup(ctx, []string{"u1", "u2", "u3"})
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users["u1"].Email != "ana@example.com" {
		t.Errorf("profile overwritten by empty claims: %+v", users["u1"])
	}
	if !users["u2"].IsAdmin() {
		t.Errorf("expected u2 to be admin")
	}
}
