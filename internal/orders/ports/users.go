package ports

import "github.com/dejobratic/storefront/internal/identity"

// UserDirectory records order owners and resolves their profiles for admin listings.
type UserDirectory = identity.Directory
