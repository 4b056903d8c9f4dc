// Package middleware provides HTTP middlewares for authentication, request
// logging and rate limiting.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/ukarch-cms/internal/apperr"
	"github.com/atinyakov/ukarch-cms/internal/auth"
	"github.com/atinyakov/ukarch-cms/internal/models"
)

type ctxKey string

const principalKey ctxKey = "principal"

// SessionChecker resolves a cookie value to the authenticated principal.
type SessionChecker interface {
	Check(ctx context.Context, token string) (*models.Principal, error)
}

// RequireSession rejects requests without a live session cookie.
//
// On success the principal is stored in the request context and can be read
// downstream with PrincipalFromContext.
func RequireSession(checker SessionChecker, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(auth.CookieName)
			if err != nil || c.Value == "" {
				writeError(w, http.StatusUnauthorized, apperr.ErrUnauthorized)
				return
			}
			p, err := checker.Check(r.Context(), c.Value)
			if err != nil {
				log.Error("session check failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, apperr.ErrInternal)
				return
			}
			if p == nil {
				writeError(w, http.StatusUnauthorized, apperr.ErrUnauthorized)
				return
			}
			ctx := WithPrincipal(r.Context(), p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated principal, or nil.
func PrincipalFromContext(ctx context.Context) *models.Principal {
	p, _ := ctx.Value(principalKey).(*models.Principal)
	return p
}

func writeError(w http.ResponseWriter, status int, e *apperr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": e.Message, "code": e.Code})
}
