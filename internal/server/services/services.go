// Package services contains the portal's business logic: authentication,
// the member-side onboarding steps and the admin review workflow.
//
// Admin operations take the caller's *auth.Session explicitly and run the
// access gate before touching any state.
package services

import (
	"time"

	"github.com/dmitrijs2005/betclever/internal/common"
	"github.com/dmitrijs2005/betclever/internal/dbx"
	"github.com/dmitrijs2005/betclever/internal/logging"
	"github.com/dmitrijs2005/betclever/internal/server/auth"
	"github.com/dmitrijs2005/betclever/internal/server/config"
	"github.com/dmitrijs2005/betclever/internal/server/mail"
	"github.com/dmitrijs2005/betclever/internal/server/metrics"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/betclever/internal/server/revocation"
	"github.com/dmitrijs2005/betclever/internal/server/storage"
)

var now = time.Now

// Deps are the collaborators shared by all services. DB serves reads
// outside transactions and may be nil for the in-memory store.
type Deps struct {
	DB      dbx.DBTX
	Tx      dbx.Transactor
	Repos   repomanager.RepositoryManager
	Config  *config.Config
	Blobs   storage.BlobStore
	Revoked revocation.Store
	Mailer  mail.Mailer
	Log     logging.Logger
	Metrics *metrics.Metrics
}

func (d Deps) logger() logging.Logger {
	if d.Log == nil {
		return logging.NopLogger{}
	}
	return d.Log
}

// RequireAdmin is the access gate for every admin operation.
func RequireAdmin(s *auth.Session) error {
	if s == nil {
		return common.ErrorUnauthorized
	}
	if !s.IsAdmin {
		return common.ErrorForbidden
	}
	return nil
}

func requireSession(s *auth.Session) error {
	if s == nil {
		return common.ErrorUnauthorized
	}
	return nil
}
