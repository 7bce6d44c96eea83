package auth

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/httputil"
	"vcanchor/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims is the transport view of a validated operator token.
type Claims struct {
	Subject string
	Scopes  []string
	JTI     string
}

type scopesKey struct{}

// RequireAuth rejects requests without a valid bearer token and stores the
// operator subject and scopes in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ctx = requestcontext.WithSubject(ctx, claims.Subject)
			ctx = context.WithValue(ctx, scopesKey{}, claims.Scopes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope must run after RequireAuth. It rejects tokens lacking scope.
func RequireScope(scope string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			scopes, _ := ctx.Value(scopesKey{}).([]string)
			if !slices.Contains(scopes, scope) {
				logger.WarnContext(ctx, "forbidden - missing scope",
					"scope", scope,
					"subject", requestcontext.Subject(ctx),
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token lacks required scope"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
