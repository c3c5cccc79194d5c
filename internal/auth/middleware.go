package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey struct{}

// WithOwner returns a context carrying the authenticated owner id.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, ownerID)
}

// OwnerID returns the owner id placed by Middleware, or "" when the
// request was not authenticated.
func OwnerID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Middleware requires "Authorization: Bearer <token>". A missing token is
// 401; a token that fails verification is 403.
func (i *Issuer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		claims, err := i.Verify(token)
		if err != nil {
			writeError(w, "invalid token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), claims.Subject)))
	})
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
