package auth

import (
	"context"

	"github.com/gestaopro/gestaopro-server/internal/models"
)

// identityKey is a private type for the identity context key.
type identityKey struct{}

// claimsKey is a private type for the verified claims context key.
type claimsKey struct{}

// SetIdentity stores the authenticated profile in the context.
func SetIdentity(ctx context.Context, profile *models.Profile) context.Context {
	return context.WithValue(ctx, identityKey{}, profile)
}

// IdentityFromContext retrieves the authenticated profile.
// Returns nil if the request was not authenticated.
func IdentityFromContext(ctx context.Context) *models.Profile {
	if v, ok := ctx.Value(identityKey{}).(*models.Profile); ok {
		return v
	}
	return nil
}

// SetClaims stores the verified token claims in the context.
func SetClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext retrieves the verified token claims, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	if v, ok := ctx.Value(claimsKey{}).(*Claims); ok {
		return v
	}
	return nil
}
