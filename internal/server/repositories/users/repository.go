// Package users declares and implements storage of portal accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/betclever/internal/server/models"
)

// Repository stores portal accounts. Lookups by e-mail are case-insensitive.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	// Search matches query as a case-insensitive substring of username or e-mail.
	Search(ctx context.Context, query string) ([]*models.User, error)
	// Update writes username, e-mail and admin flag.
	Update(ctx context.Context, user *models.User) error
	SetPasswordHash(ctx context.Context, id string, hash []byte) error
	Delete(ctx context.Context, id string) error
	// GetRoot returns the root admin or common.ErrorNotFound.
	GetRoot(ctx context.Context) (*models.User, error)
}
