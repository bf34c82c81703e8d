package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/betclever/internal/dbx"
	"github.com/dmitrijs2005/betclever/internal/server/models"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/pgerr"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `SELECT id, username, email, password_hash, is_admin, is_root, created_at FROM users`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	u := &models.User{}
	if err := s.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.IsRoot, &u.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO users (id, username, email, password_hash, is_admin, is_root)
         VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.IsAdmin, user.IsRoot).Scan(&user.CreatedAt)
	if err != nil {
		return nil, pgerr.Wrap(err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id))
	if err != nil {
		return nil, pgerr.Wrap(err)
	}
	return u, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, selectColumns+` WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, pgerr.Wrap(err)
	}
	return u, nil
}

func (r *PostgresRepository) GetRoot(ctx context.Context) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, selectColumns+` WHERE is_root`))
	if err != nil {
		return nil, pgerr.Wrap(err)
	}
	return u, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.User, error) {
	return r.query(ctx, selectColumns+` ORDER BY created_at, id`)
}

func (r *PostgresRepository) Search(ctx context.Context, query string) ([]*models.User, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	return r.query(ctx,
		selectColumns+` WHERE lower(username) LIKE $1 OR lower(email) LIKE $1 ORDER BY created_at, id`,
		pattern)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	query := `UPDATE users SET username = $2, email = $3, is_admin = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.IsAdmin)
	if err != nil {
		return pgerr.Wrap(err)
	}
	return pgerr.ExpectOne(res)
}

func (r *PostgresRepository) SetPasswordHash(ctx context.Context, id string, hash []byte) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return pgerr.Wrap(err)
	}
	return pgerr.ExpectOne(res)
}

// Delete removes a non-root user; dependent rows go with it (ON DELETE CASCADE).
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1 AND NOT is_root`, id)
	if err != nil {
		return pgerr.Wrap(err)
	}
	return pgerr.ExpectOne(res)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
