package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gridline/design-review-service/internal/auth"
)

type principalKey struct{}

// PrincipalFrom returns the authenticated principal stored by WithAuth.
func PrincipalFrom(ctx context.Context) string {
	principal, _ := ctx.Value(principalKey{}).(string)
	return principal
}

// WithAuth resolves the bearer token to a principal and stores it in the
// request context. Requests without a resolvable principal get a 401.
func WithAuth(verifier auth.Verifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if header := r.Header.Get("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				token = strings.TrimSpace(parts[1])
			}
		}

		principal, err := verifier.Verify(r.Context(), token)
		if err != nil {
			slog.Warn("Rejected unauthenticated request",
				"path", r.URL.Path,
				"remote", r.RemoteAddr)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
