package apperrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dejobratic/storefront/internal/apperrors"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := apperrors.WithMetadata(apperrors.KindNotFound, "order not found: o-1", map[string]string{"order_id": "o-1"})
	wrapped := fmt.Errorf("get order: %w", err)

	if !errors.Is(wrapped, apperrors.ErrNotFound) {
		t.Error("expected wrapped error to match ErrNotFound")
	}
	if errors.Is(wrapped, apperrors.ErrForbidden) {
		t.Error("did not expect wrapped error to match ErrForbidden")
	}
	if got := apperrors.KindOf(wrapped); got != apperrors.KindNotFound {
		t.Errorf("KindOf() = %q, want %q", got, apperrors.KindNotFound)
	}
}

func TestClassify(t *testing.T) {
	t.Run("leaves application errors untouched", func(t *testing.T) {
		original := apperrors.Validation("quantity must be at least 1")
		if got := apperrors.Classify(original); got != original {
			t.Errorf("Classify() = %v, want original error", got)
		}
	})

	t.Run("wraps foreign errors as unavailable", func(t *testing.T) {
		cause := errors.New("dial tcp 10.0.0.1:5432: connection refused")
		got := apperrors.Classify(cause)
		if !errors.Is(got, apperrors.ErrUnavailable) {
			t.Fatalf("expected unavailable, got %v", got)
		}
		if !errors.Is(got, cause) {
			t.Error("expected cause to be preserved in the chain")
		}
		if msg := apperrors.PublicMessage(got); msg != "service temporarily unavailable" {
			t.Errorf("PublicMessage() = %q, leaks internals", msg)
		}
	})

	t.Run("nil stays nil", func(t *testing.T) {
		if apperrors.Classify(nil) != nil {
			t.Error("expected nil")
		}
	})
}

func TestKindHTTPStatus(t *testing.T) {
	tests := []struct {
		kind apperrors.Kind
		want int
	}{
		{apperrors.KindNotFound, http.StatusNotFound},
		{apperrors.KindInsufficientStock, http.StatusBadRequest},
		{apperrors.KindValidation, http.StatusBadRequest},
		{apperrors.KindUnauthenticated, http.StatusUnauthorized},
		{apperrors.KindForbidden, http.StatusForbidden},
		{apperrors.KindConflict, http.StatusConflict},
		{apperrors.KindInvalidTransition, http.StatusConflict},
		{apperrors.KindUnavailable, http.StatusServiceUnavailable},
		{apperrors.Kind(""), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPublicMessageForUnknownErrors(t *testing.T) {
	if got := apperrors.PublicMessage(errors.New("pq: relation does not exist")); got != "internal server error" {
		t.Errorf("PublicMessage() = %q", got)
	}
}
