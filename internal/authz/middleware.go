package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/classpulse/classpulse/internal/shared"
)

type principalContextKey struct{}

// ContextWithPrincipal stores the resolved principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal placed by the middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}

// Middleware resolves the session user into a Principal once per request
// and injects it into the request context. Resolution is never cached
// across requests, so a role change takes effect immediately.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// RequirePrincipal rejects requests without a resolvable principal.
func (m Middleware) RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principalID, ok := m.currentPrincipalID(r)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		p, err := m.Resolver.Resolve(r.Context(), principalID)
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			case errors.Is(err, ErrIntegrity):
				if m.Logger != nil {
					m.Logger.Error("resolve principal", slog.Int64("principal_id", principalID), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			default:
				if m.Logger != nil {
					m.Logger.Error("resolve principal", slog.Int64("principal_id", principalID), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
	})
}

func (m Middleware) currentPrincipalID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("parse principal id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}
