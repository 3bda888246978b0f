package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaopro/gestaopro-server/internal/models"
	"github.com/gestaopro/gestaopro-server/internal/observability"
	"github.com/gestaopro/gestaopro-server/internal/storage"
)

// ProfileLookup resolves the identity named by a token
type ProfileLookup interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// Middleware authenticates requests carrying "Authorization: Bearer <token>".
// The profile is re-read on every request so role and company changes apply
// immediately.
func Middleware(tokens *JWTManager, profiles ProfileLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				observability.AuthFailuresTotal.WithLabelValues(observability.ReasonMissingToken).Inc()
				respondError(w, http.StatusUnauthorized, MsgTokenRequired)
				return
			}

			claims, err := tokens.VerifyToken(raw)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("Token rejected")
				observability.AuthFailuresTotal.WithLabelValues(observability.ReasonInvalidToken).Inc()
				respondError(w, http.StatusForbidden, MsgInvalidToken)
				return
			}

			profile, err := profiles.GetProfile(r.Context(), claims.UserID)
			if errors.Is(err, storage.ErrNotFound) {
				observability.AuthFailuresTotal.WithLabelValues(observability.ReasonUnknownUser).Inc()
				respondError(w, http.StatusUnauthorized, MsgUserNotFound)
				return
			}
			if err != nil {
				log.Error().Err(err).
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("user_id", claims.UserID.String()).
					Msg("Failed to load profile")
				respondError(w, http.StatusInternalServerError, MsgInternal)
				return
			}

			ctx := SetIdentity(r.Context(), profile)
			ctx = SetClaims(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is case-insensitive.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
