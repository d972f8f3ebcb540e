package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dejobratic/storefront/internal/apperrors"
	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestResolver(t *testing.T, now time.Time) *JWTResolver {
	t.Helper()
	resolver, err := NewJWTResolver(TokenConfig{
		Secret: testSecret,
		Issuer: "storefront-test",
		Now:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewJWTResolver() error = %v", err)
	}
	return resolver
}

func TestNewJWTResolver_RejectsWeakConfig(t *testing.T) {
	if _, err := NewJWTResolver(TokenConfig{Secret: []byte("short"), Issuer: "x"}); err == nil {
		t.Error("expected error for short secret")
	}
	if _, err := NewJWTResolver(TokenConfig{Secret: testSecret}); err == nil {
		t.Error("expected error for missing issuer")
	}
}

func TestJWTResolver_RoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	resolver := newTestResolver(t, now)

	want := Identity{UserID: "user-1", Role: RoleAdmin, Name: "Ana", Email: "ana@example.com"}
	token, err := resolver.Issue(want, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, err := resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != want {
		t.Errorf("Resolve() = %+v, want %+v", got, want)
	}
}

func TestJWTResolver_Rejects(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	resolver := newTestResolver(t, now)

	expired, _ := newTestResolver(t, now.Add(-2*time.Hour)).Issue(Identity{UserID: "u", Role: RoleUser}, time.Hour)

	other, _ := NewJWTResolver(TokenConfig{Secret: []byte("ffffffffffffffffffffffffffffffff"), Issuer: "storefront-test", Now: func() time.Time { return now }})
	badSignature, _ := other.Issue(Identity{UserID: "u", Role: RoleUser}, time.Hour)

	otherIssuer, _ := NewJWTResolver(TokenConfig{Secret: testSecret, Issuer: "elsewhere", Now: func() time.Time { return now }})
	wrongIssuer, _ := otherIssuer.Issue(Identity{UserID: "u", Role: RoleUser}, time.Hour)

	noSubject, _ := resolver.Issue(Identity{Role: RoleUser}, time.Hour)
	badRole, _ := resolver.Issue(Identity{UserID: "u", Role: "root"}, time.Hour)

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u",
		"iss": "storefront-test",
	}).SignedString(testSecret)

	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "u",
		"iss": "storefront-test",
		"exp": now.Add(time.Hour).Unix(),
	}).SignedString(testSecret)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-token"},
		{name: "expired", token: expired},
		{name: "bad signature", token: badSignature},
		{name: "wrong issuer", token: wrongIssuer},
		{name: "missing subject", token: noSubject},
		{name: "unknown role", token: badRole},
		{name: "missing expiry", token: noExpiry},
		{name: "unexpected algorithm", token: hs512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Resolve(context.Background(), tt.token)
			if !errors.Is(err, apperrors.ErrUnauthenticated) {
				t.Fatalf("Resolve() error = %v, want unauthenticated", err)
			}
		})
	}
}

func TestIdentity_CanAccess(t *testing.T) {
	tests := []struct {
		name   string
		id     Identity
		owner  string
		expect bool
	}{
		{name: "owner", id: Identity{UserID: "u1", Role: RoleUser}, owner: "u1", expect: true},
		{name: "other user", id: Identity{UserID: "u2", Role: RoleUser}, owner: "u1", expect: false},
		{name: "admin", id: Identity{UserID: "a", Role: RoleAdmin}, owner: "u1", expect: true},
		{name: "anonymous", id: Identity{}, owner: "", expect: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.CanAccess(tt.owner); got != tt.expect {
				t.Errorf("CanAccess() = %v, want %v", got, tt.expect)
			}
		})
	}
}
