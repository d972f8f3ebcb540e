package database

import (
	"context"
	"fmt"
	"time"
)

// Pinger is anything the readiness probe can ping: the pgx pool, a Redis client adapter.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckHealth pings every dependency with a short deadline and reports the first failure.
func CheckHealth(ctx context.Context, deps map[string]Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	for name, dep := range deps {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
