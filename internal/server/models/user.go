// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a portal account. IsRoot marks the single protected admin.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash []byte
	IsAdmin      bool
	IsRoot       bool
	CreatedAt    time.Time
}
