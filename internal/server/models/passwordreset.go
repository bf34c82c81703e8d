package models

import "time"

// PasswordReset is a one-time reset token; only its SHA-256 is stored.
type PasswordReset struct {
	TokenHash []byte
	UserID    string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
