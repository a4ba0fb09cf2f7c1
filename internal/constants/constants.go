package constants

import "time"

const (
	// MinPasswordLength is the shortest password accepted on registration or change.
	MinPasswordLength = 8

	// DefaultPageLimit is used when a listing request carries no limit.
	DefaultPageLimit = 10
	// MaxPageLimit caps a single listing page.
	MaxPageLimit = 500

	// DefaultTokenTTL is the lifetime of a session token issued on login.
	DefaultTokenTTL = 30 * 24 * time.Hour

	// ContextKeyUsername is the request context key holding the authenticated identity.
	ContextKeyUsername = "username"

	// ClaimUsername is the token claim carrying the identity.
	ClaimUsername = "username"
	// ClaimExpiry is the token claim carrying the absolute expiry in epoch seconds.
	ClaimExpiry = "exp"
)
