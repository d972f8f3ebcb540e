package identity

import (
	"net/http"
	"strings"

	"github.com/dejobratic/storefront/internal/apperrors"
	"github.com/dejobratic/storefront/internal/httpserver"
)

// Authenticate resolves the bearer token on every request and rejects requests
// without a valid one.
func Authenticate(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential, ok := bearerToken(r)
			if !ok {
				writeError(w, r, apperrors.New(apperrors.KindUnauthenticated, "bearer token required"))
				return
			}

			id, err := resolver.Resolve(r.Context(), credential)
			if err != nil {
				writeError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin rejects authenticated callers that are not administrators.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok {
			writeError(w, r, apperrors.New(apperrors.KindUnauthenticated, "bearer token required"))
			return
		}
		if !id.IsAdmin() {
			writeError(w, r, apperrors.Forbidden("administrator role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	httpserver.WriteError(w, r, nil, err)
}
