// Package documents stores the per-(user, category) upload records.
package documents

import (
	"context"

	"github.com/dmitrijs2005/betclever/internal/server/models"
	"github.com/dmitrijs2005/betclever/internal/server/workflow"
)

type Repository interface {
	// ListByUser returns the user's records in canonical category order.
	ListByUser(ctx context.Context, userID string) ([]*models.Document, error)
	// Get returns one record or common.ErrorNotFound.
	Get(ctx context.Context, userID string, category workflow.DocumentCategory) (*models.Document, error)
	// Put replaces the file list of the (user, category) record, creating it
	// if needed. Lock and approval flags are left as stored.
	Put(ctx context.Context, doc *models.Document) error
	// LockAll locks every record of the user.
	LockAll(ctx context.Context, userID string) error
	// SetLocked sets the lock of one record. A missing record is not an error.
	SetLocked(ctx context.Context, userID string, category workflow.DocumentCategory, locked bool) error
}
