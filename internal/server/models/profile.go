package models

import "time"

// Profile holds a member's contact and address data. The row exists only
// after the member saved it once.
type Profile struct {
	UserID      string
	FirstName   string
	LastName    string
	Phone       string
	Street      string
	HouseNumber string
	PostalCode  string
	City        string
	IsLocked    bool
	UpdatedAt   time.Time
}
