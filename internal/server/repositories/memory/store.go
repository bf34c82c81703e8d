// Package memory is an in-process implementation of every repository
// contract plus dbx.Transactor. It backs service tests and local runs
// without PostgreSQL; transactions roll back by replaying an undo journal.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/dmitrijs2005/betclever/internal/dbx"
	"github.com/dmitrijs2005/betclever/internal/server/models"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/documents"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/passwordresets"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/statuses"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/users"
	"github.com/dmitrijs2005/betclever/internal/server/workflow"
)

type docKey struct {
	userID   string
	category workflow.DocumentCategory
}

type state struct {
	users    map[string]models.User
	order    []string
	profiles map[string]models.Profile
	docs     map[docKey]models.Document
	statuses map[string]models.UserStatus
	refresh  map[string]models.RefreshToken
	resets   map[string]models.PasswordReset
}

func newState() state {
	return state{
		users:    map[string]models.User{},
		profiles: map[string]models.Profile{},
		docs:     map[docKey]models.Document{},
		statuses: map[string]models.UserStatus{},
		refresh:  map[string]models.RefreshToken{},
		resets:   map[string]models.PasswordReset{},
	}
}

// Store holds all tables in memory.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	s    state
}

func NewStore() *Store {
	return &Store{s: newState()}
}

var errNoSQL = errors.New("memory store does not run SQL")

// txHandle is the DBTX passed to WithinTx callbacks. Repositories bound to
// it journal their writes so a rollback undoes exactly those writes.
type txHandle struct {
	undo []func()
}

func (*txHandle) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errNoSQL
}

func (*txHandle) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNoSQL
}

func (*txHandle) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

// journal records how to undo the next write. Outside a transaction it is
// a no-op. Callers hold Store.mu.
func (tx *txHandle) journal(fn func()) {
	if tx != nil {
		tx.undo = append(tx.undo, fn)
	}
}

// keep journals the current value (or absence) of m[k].
func keep[K comparable, V any](tx *txHandle, m map[K]V, k K) {
	if tx == nil {
		return
	}
	prev, ok := m[k]
	tx.journal(func() {
		if ok {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
}

func txOf(db dbx.DBTX) *txHandle {
	tx, _ := db.(*txHandle)
	return tx
}

// WithinTx runs fn; on error (or panic) every write made through tx is
// undone. Writes through other handles are left alone. Transactions are
// serialized.
func (st *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) (err error) {
	st.txMu.Lock()
	defer st.txMu.Unlock()

	tx := &txHandle{}
	defer func() {
		if p := recover(); p != nil {
			st.rollback(tx)
			panic(p)
		}
		if err != nil {
			st.rollback(tx)
		}
	}()

	return fn(ctx, tx)
}

func (st *Store) rollback(tx *txHandle) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (st *Store) RunMigrations(context.Context, *sql.DB) error { return nil }

func (st *Store) Users(db dbx.DBTX) users.Repository       { return &userRepo{st, txOf(db)} }
func (st *Store) Profiles(db dbx.DBTX) profiles.Repository { return &profileRepo{st, txOf(db)} }
func (st *Store) Documents(db dbx.DBTX) documents.Repository {
	return &documentRepo{st, txOf(db)}
}
func (st *Store) Statuses(db dbx.DBTX) statuses.Repository { return &statusRepo{st, txOf(db)} }
func (st *Store) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return &refreshRepo{st, txOf(db)}
}
func (st *Store) PasswordResets(db dbx.DBTX) passwordresets.Repository {
	return &resetRepo{st, txOf(db)}
}
