// Package profiles stores member contact and address data.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/betclever/internal/server/models"
)

type Repository interface {
	// Get returns the profile or common.ErrorNotFound if never saved.
	Get(ctx context.Context, userID string) (*models.Profile, error)
	// Save inserts or updates the contact fields; the lock flag is left as stored.
	Save(ctx context.Context, p *models.Profile) error
	// SetLocked sets the lock flag. A missing profile is not an error.
	SetLocked(ctx context.Context, userID string, locked bool) error
}
