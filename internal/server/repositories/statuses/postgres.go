package statuses

import (
	"context"

	"github.com/dmitrijs2005/betclever/internal/dbx"
	"github.com/dmitrijs2005/betclever/internal/server/models"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/pgerr"
	"github.com/dmitrijs2005/betclever/internal/server/workflow"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, userID string) (*models.UserStatus, error) {
	query := `
		INSERT INTO user_status (user_id)
		VALUES ($1)
		RETURNING user_id, upload_status, community_status, updated_at
	`
	s := &models.UserStatus{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.UserID, &s.UploadStatus, &s.CommunityStatus, &s.UpdatedAt)
	if err != nil {
		return nil, pgerr.Wrap(err)
	}
	return s, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.UserStatus, error) {
	query := `
		SELECT user_id, upload_status, community_status, updated_at
		FROM user_status
		WHERE user_id = $1
	`
	s := &models.UserStatus{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.UserID, &s.UploadStatus, &s.CommunityStatus, &s.UpdatedAt)
	if err != nil {
		return nil, pgerr.Wrap(err)
	}
	return s, nil
}

func (r *PostgresRepository) SetUploadStatus(ctx context.Context, userID string, s workflow.UploadStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_status SET upload_status = $2, updated_at = now() WHERE user_id = $1`, userID, s)
	if err != nil {
		return pgerr.Wrap(err)
	}
	return pgerr.ExpectOne(res)
}

func (r *PostgresRepository) SetCommunityStatus(ctx context.Context, userID string, s workflow.CommunityStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_status SET community_status = $2, updated_at = now() WHERE user_id = $1`, userID, s)
	if err != nil {
		return pgerr.Wrap(err)
	}
	return pgerr.ExpectOne(res)
}
