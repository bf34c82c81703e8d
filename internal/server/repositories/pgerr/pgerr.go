// Package pgerr translates PostgreSQL driver errors into common sentinels.
package pgerr

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/betclever/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// Wrap maps sql.ErrNoRows to common.ErrorNotFound and unique violations to
// common.ErrorAlreadyExists; anything else becomes "db error: ...".
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, pgErr.ConstraintName)
	}
	return fmt.Errorf("db error: %w", err)
}

// ExpectOne returns common.ErrorNotFound unless exactly one row was affected.
func ExpectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
