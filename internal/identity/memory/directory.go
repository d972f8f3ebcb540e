package memory

import (
	"context"
	"sync"

	"github.com/dejobratic/storefront/internal/identity"
)

// Directory keeps known users in memory.
type Directory struct {
	mu    sync.RWMutex
	users map[string]identity.Identity
}

func NewDirectory() *Directory {
	return &Directory{users: make(map[string]identity.Identity)}
}

// Upsert replaces the stored profile. Empty name or email keep the previous value.
func (d *Directory) Upsert(_ context.Context, id identity.Identity) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	existing, ok := d.users[id.UserID]
	if ok {
		if id.Name == "" {
			id.Name = existing.Name
		}
		if id.Email == "" {
			id.Email = existing.Email
		}
	}
	d.users[id.UserID] = id
	return nil
}

// Lookup returns the known users among userIDs. Unknown ids are omitted.
func (d *Directory) Lookup(_ context.Context, userIDs []string) (map[string]identity.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make(map[string]identity.Identity, len(userIDs))
	for _, userID := range userIDs {
		if user, ok := d.users[userID]; ok {
			result[userID] = user
		}
	}
	return result, nil
}
