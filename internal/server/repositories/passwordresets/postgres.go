package passwordresets

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/betclever/internal/dbx"
	"github.com/dmitrijs2005/betclever/internal/server/models"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/pgerr"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, pr *models.PasswordReset) error {
	query := `
		INSERT INTO password_resets (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	return pgerr.Wrap(r.db.QueryRowContext(ctx, query, pr.TokenHash, pr.UserID, pr.ExpiresAt).Scan(&pr.CreatedAt))
}

func (r *PostgresRepository) Find(ctx context.Context, tokenHash []byte) (*models.PasswordReset, error) {
	query := `
		SELECT token_hash, user_id, expires_at, used_at, created_at
		FROM password_resets
		WHERE token_hash = $1
	`
	pr := &models.PasswordReset{}
	var usedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(&pr.TokenHash, &pr.UserID, &pr.ExpiresAt, &usedAt, &pr.CreatedAt)
	if err != nil {
		return nil, pgerr.Wrap(err)
	}
	if usedAt.Valid {
		pr.UsedAt = &usedAt.Time
	}
	return pr, nil
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, tokenHash []byte) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE password_resets SET used_at = now() WHERE token_hash = $1 AND used_at IS NULL`, tokenHash)
	if err != nil {
		return pgerr.Wrap(err)
	}
	return pgerr.ExpectOne(res)
}
