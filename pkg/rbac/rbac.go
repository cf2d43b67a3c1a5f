// Package rbac provides role-based access control middleware. It runs after
// middleware.Authenticate has stored the principal.
package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/shopkart/pkg/auth"
	"github.com/shashiranjanraj/shopkart/pkg/response"
)

// HasRole allows the request when the principal holds any of roles.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFrom(r.Context())
			if !ok {
				response.Unauthorized(w)
				return
			}
			for _, role := range roles {
				if p.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Forbidden(w)
		})
	}
}

// OwnsShop allows the request when the principal owns the shop named by the
// URL parameter param, or is an admin.
func OwnsShop(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFrom(r.Context())
			if !ok {
				response.Unauthorized(w)
				return
			}
			if !p.IsAdmin() && !p.OwnsShop(chi.URLParam(r, param)) {
				response.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
