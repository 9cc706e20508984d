package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/nexhire/nexhire/pkg/jwtx"
	"github.com/nexhire/nexhire/pkg/slogx"
)

// TokenVerifier validates a compact access token and returns its claims.
type TokenVerifier interface {
	Verify(raw string) (jwtx.Claims, error)
}

// Denylist answers whether an access token (by jti) has been revoked before
// its natural expiry, e.g. by a single-token logout.
type Denylist interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthnMiddleware verifies the bearer token and injects the claims into the
// request context. A nil denylist skips the revocation check.
func AuthnMiddleware(v TokenVerifier, dl Denylist) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("jwt verify failed", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			if dl != nil && claims.ID != "" {
				revoked, err := dl.IsRevoked(ctx, claims.ID)
				if err != nil {
					log.Error("denylist lookup failed", "err", err)
					WriteError(w, http.StatusInternalServerError, "server_error", "authorization check failed")
					return
				}
				if revoked {
					writeBearerError(w, "token revoked")
					return
				}
			}

			ctx = context.WithValue(ctx, CtxKeyAccountID, claims.Subject)
			ctx = context.WithValue(ctx, CtxKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
