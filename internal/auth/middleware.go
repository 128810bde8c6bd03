package auth

import (
	"context"
	"fmt"
	"net/http"

	"ms-booking/internal/apperror"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

// Verifier turns a bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, raw string) (Identity, error)
}

// Middleware rejects requests without a valid bearer token and stores the
// caller's Identity in the request context.
func Middleware(verifier Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				log.LogSecurity("AUTH_MISSING", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, apperror.NewUnauthorized(err.Error()))
				return
			}

			id, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("AUTH_INVALID", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, apperror.NewUnauthorized("invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole lets the request through only if the caller holds one of roles.
// It must run after Middleware.
func RequireRole(log *logger.Logger, roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				utils.WriteError(w, apperror.NewUnauthorized("authentication required"))
				return
			}
			if !id.HasRole(roles...) {
				log.LogSecurity("FORBIDDEN", fmt.Sprintf("user %s with role %s denied %s %s", id.UserID, id.Role, r.Method, r.URL.Path))
				utils.WriteError(w, apperror.NewForbidden(fmt.Sprintf("role %s may not perform this action", id.Role)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
