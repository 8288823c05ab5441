// Package common contains shared constants, sentinel errors and the typed
// AppError used across CourseSell components.
package common

// SessionCookieName is the default name of the cookie that carries the
// session token.
const SessionCookieName = "token"

// AuthorizationScheme is the HTTP Authorization scheme accepted as an
// alternative token holder (used by the CLI and API clients).
const AuthorizationScheme = "Bearer"

// Account roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Subscription states.
const (
	SubscriptionNone      = "none"
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
)
