// Package passwordresets stores one-time password reset tokens by hash.
package passwordresets

import (
	"context"

	"github.com/dmitrijs2005/betclever/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, r *models.PasswordReset) error
	// Find returns the reset row for tokenHash or common.ErrorNotFound.
	Find(ctx context.Context, tokenHash []byte) (*models.PasswordReset, error)
	// MarkUsed consumes the token; a token already used yields common.ErrorNotFound.
	MarkUsed(ctx context.Context, tokenHash []byte) error
}
