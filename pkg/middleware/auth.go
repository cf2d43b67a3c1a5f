package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"github.com/shashiranjanraj/shopkart/pkg/response"
)

// PrincipalResolver turns validated token claims into a Principal,
// typically by loading the user and their shops.
type PrincipalResolver interface {
	Resolve(ctx context.Context, claims *auth.Claims) (*auth.Principal, error)
}

// Authenticate validates the bearer token, resolves the principal and
// stores it on the request context. Browsers cannot set headers on a
// WebSocket handshake, so a ?token= query parameter is accepted there.
func Authenticate(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				response.Unauthorized(w)
				return
			}

			claims, err := auth.ValidateToken(token)
			if err != nil {
				response.Fail(w, r, apperr.Wrap(apperr.Unauthenticated, err, "invalid token"))
				return
			}

			p, err := resolver.Resolve(r.Context(), claims)
			if err != nil {
				response.Fail(w, r, err)
				return
			}

			ctx := auth.WithPrincipal(r.Context(), p)
			ctx = logger.InjectLogger(ctx, logger.WithCtx(ctx).With("user_id", p.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Identify attaches the principal when a valid token is present and lets
// anonymous requests through untouched. Public catalog pages use it so
// owners and admins can see shops that are not yet approved.
func Identify(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := auth.ValidateToken(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			p, err := resolver.Resolve(r.Context(), claims)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if streaming(r) {
		return r.URL.Query().Get("token")
	}
	return ""
}

// streaming reports a websocket upgrade or an EventSource request. Browsers
// cannot set headers on either, so they pass ?token= instead.
func streaming(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") ||
		strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}
