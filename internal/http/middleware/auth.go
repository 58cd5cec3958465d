package middleware

import (
	"context"
	"net/http"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/internal/http/response"
	"github.com/diagnosis/bloodcare/internal/service"
	"github.com/diagnosis/bloodcare/pkg/logger"
	mw "github.com/diagnosis/bloodcare/pkg/middleware"
)

type ctxKey string

const ctxAuth ctxKey = "auth_context"

type PrincipalResolver interface {
	Resolve(ctx context.Context, authorization string) (string, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, email string) (domain.AuthContext, error)
}

// Authenticate resolves the bearer credential and attaches the caller's
// AuthContext to the request. Requests without a valid credential stop here
// with 401.
func Authenticate(resolver PrincipalResolver, guard Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, err := resolver.Resolve(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				logger.WarnContext(r.Context(), "Authentication failed", "error", err)
				response.FromError(w, r, err)
				return
			}
			ac, err := guard.Authorize(r.Context(), email)
			if err != nil {
				response.FromError(w, r, err)
				return
			}
			ctx := logger.WithPrincipal(r.Context(), ac.Email)
			ctx = mw.WithPrincipal(ctx, ac.Email)
			ctx = context.WithValue(ctx, ctxAuth, ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole must run after Authenticate.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := service.RequireRole(Auth(r), role); err != nil {
				response.FromError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Auth returns the caller attached by Authenticate, or the zero AuthContext
// on public routes.
func Auth(r *http.Request) domain.AuthContext {
	ac, _ := r.Context().Value(ctxAuth).(domain.AuthContext)
	return ac
}
