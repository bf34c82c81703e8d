// Package common contains shared constants and sentinel errors used across
// BetClever components.
package common

const (
	// AuthorizationHeaderName carries the bearer access token on HTTP requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the access token in the Authorization header.
	BearerPrefix = "Bearer "
)
