// Package statuses stores the per-user upload and community status pair.
package statuses

import (
	"context"

	"github.com/dmitrijs2005/betclever/internal/server/models"
	"github.com/dmitrijs2005/betclever/internal/server/workflow"
)

type Repository interface {
	// Create inserts the default status row for a new user.
	Create(ctx context.Context, userID string) (*models.UserStatus, error)
	Get(ctx context.Context, userID string) (*models.UserStatus, error)
	// SetUploadStatus and SetCommunityStatus return common.ErrorNotFound
	// when the user has no status row.
	SetUploadStatus(ctx context.Context, userID string, s workflow.UploadStatus) error
	SetCommunityStatus(ctx context.Context, userID string, s workflow.CommunityStatus) error
}
