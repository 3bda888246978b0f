package auth

import (
	"net/http"

	"github.com/gestaopro/gestaopro-server/internal/models"
	"github.com/gestaopro/gestaopro-server/internal/observability"
)

// RequireTenant rejects identities that do not belong to a company
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile := IdentityFromContext(r.Context())
		if profile == nil {
			respondError(w, http.StatusUnauthorized, MsgTokenRequired)
			return
		}
		if !profile.HasCompany() {
			observability.AuthFailuresTotal.WithLabelValues(observability.ReasonNoCompany).Inc()
			respondError(w, http.StatusForbidden, MsgNoCompany)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects identities whose role is not one of roles
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile := IdentityFromContext(r.Context())
			if profile == nil {
				respondError(w, http.StatusUnauthorized, MsgTokenRequired)
				return
			}
			if !HasRole(profile, roles...) {
				observability.AuthFailuresTotal.WithLabelValues(observability.ReasonForbiddenRole).Inc()
				respondError(w, http.StatusForbidden, MsgForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HasRole reports whether profile holds one of roles
func HasRole(profile *models.Profile, roles ...models.Role) bool {
	for _, role := range roles {
		if profile.Role == role {
			return true
		}
	}
	return false
}
