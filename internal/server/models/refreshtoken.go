package models

import "time"

// RefreshToken is an opaque long-lived token exchanged for new access tokens.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
