package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/betclever/internal/dbx"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/documents"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/passwordresets"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/statuses"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DB handle or a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Documents(db dbx.DBTX) documents.Repository
	Statuses(db dbx.DBTX) statuses.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	PasswordResets(db dbx.DBTX) passwordresets.Repository
}
