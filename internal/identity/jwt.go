package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dejobratic/storefront/internal/apperrors"
	"github.com/golang-jwt/jwt/v5"
)

// TokenConfig defines how access tokens are signed and verified.
type TokenConfig struct {
	Secret []byte
	Issuer string
	Now    func() time.Time
}

type accessClaims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// JWTResolver verifies HS256 access tokens.
type JWTResolver struct {
	cfg TokenConfig
}

// NewJWTResolver validates the configuration and builds a resolver.
func NewJWTResolver(cfg TokenConfig) (*JWTResolver, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("token secret must be at least 32 bytes")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("token issuer is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &JWTResolver{cfg: cfg}, nil
}

// Resolve parses and verifies credential and returns the caller it names.
func (r *JWTResolver) Resolve(_ context.Context, credential string) (Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Identity{}, apperrors.New(apperrors.KindUnauthenticated, "credential is required")
	}

	var claims accessClaims
	_, err := jwt.ParseWithClaims(credential, &claims, func(*jwt.Token) (any, error) {
		return r.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(r.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(r.cfg.Now),
	)
	if err != nil {
		return Identity{}, mapJWTError(err)
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, apperrors.New(apperrors.KindUnauthenticated, "token subject is required")
	}

	role := Role(claims.Role)
	switch role {
	case RoleUser, RoleAdmin:
	case "":
		role = RoleUser
	default:
		return Identity{}, apperrors.New(apperrors.KindUnauthenticated, fmt.Sprintf("unknown role %q", claims.Role))
	}

	return Identity{
		UserID: claims.Subject,
		Role:   role,
		Name:   claims.Name,
		Email:  claims.Email,
	}, nil
}

// Issue signs an access token for id that expires after ttl.
func (r *JWTResolver) Issue(id Identity, ttl time.Duration) (string, error) {
	now := r.cfg.Now().UTC()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    r.cfg.Issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:  string(id.Role),
		Name:  id.Name,
		Email: id.Email,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.Wrap(apperrors.KindUnauthenticated, "token is expired", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperrors.Wrap(apperrors.KindUnauthenticated, "token signature is invalid", err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return apperrors.Wrap(apperrors.KindUnauthenticated, "token issuer mismatch", err)
	default:
		return apperrors.Wrap(apperrors.KindUnauthenticated, "token is invalid", err)
	}
}
