package database

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckHealth(t *testing.T) {
	t.Run("healthy when every dependency answers", func(t *testing.T) {
		deps := map[string]Pinger{
			"postgres": pingerFunc(func(context.Context) error { return nil }),
			"redis":    nil,
		}
		if err := CheckHealth(context.Background(), deps); err != nil {
			t.Fatalf("expected healthy, got %v", err)
		}
	})

	t.Run("names the failing dependency", func(t *testing.T) {
		deps := map[string]Pinger{
			"redis": pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
		}
		err := CheckHealth(context.Background(), deps)
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.HasPrefix(err.Error(), "redis:") {
			t.Errorf("expected error to name redis, got %q", err)
		}
	})

	t.Run("applies a deadline", func(t *testing.T) {
		deps := map[string]Pinger{
			"postgres": pingerFunc(func(ctx context.Context) error {
				if _, ok := ctx.Deadline(); !ok {
					return errors.New("no deadline")
				}
				return nil
			}),
		}
		if err := CheckHealth(context.Background(), deps); err != nil {
			t.Fatal(err)
		}
	})
}
