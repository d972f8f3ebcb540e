// Command tokengen mints signed bearer tokens for local development.
//
//	AUTH_JWT_SECRET=... go run ./cmd/tokengen -user alice -role admin
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dejobratic/storefront/internal/config"
	"github.com/dejobratic/storefront/internal/identity"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	var (
		userID = flag.String("user", "", "user id placed in the subject claim (required)")
		role   = flag.String("role", string(identity.RoleUser), "role: user or admin")
		name   = flag.String("name", "", "display name")
		email  = flag.String("email", "", "email address")
		ttl    = flag.Duration("ttl", 0, "token lifetime (default AUTH_TOKEN_TTL)")
	)
	flag.Parse()

	if err := run(*userID, *role, *name, *email, *ttl); err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}
}

func run(userID, role, name, email string, ttl time.Duration) error {
	if userID == "" {
		return fmt.Errorf("-user is required")
	}
	if role != string(identity.RoleUser) && role != string(identity.RoleAdmin) {
		return fmt.Errorf("unknown role %q", role)
	}

	cfg, err := config.LoadAuth()
	if err != nil {
		return err
	}
	if ttl == 0 {
		ttl = cfg.TokenTTL
	}

	issuer, err := identity.NewJWTResolver(identity.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.Issuer,
	})
	if err != nil {
		return err
	}

	token, err := issuer.Issue(identity.Identity{
		UserID: userID,
		Role:   identity.Role(role),
		Name:   name,
		Email:  email,
	}, ttl)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
