package documents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/betclever/internal/dbx"
	"github.com/dmitrijs2005/betclever/internal/server/models"
	"github.com/dmitrijs2005/betclever/internal/server/repositories/pgerr"
	"github.com/dmitrijs2005/betclever/internal/server/workflow"
	"github.com/google/uuid"
)

// PostgresRepository keeps file references in a jsonb column.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `SELECT id, user_id, category, files, is_locked, is_approved, updated_at FROM documents`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*models.Document, error) {
	d := &models.Document{}
	var files []byte
	if err := s.Scan(&d.ID, &d.UserID, &d.Category, &files, &d.IsLocked, &d.IsApproved, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if len(files) > 0 {
		if err := json.Unmarshal(files, &d.Files); err != nil {
			return nil, fmt.Errorf("decode files of document %s: %w", d.ID, err)
		}
	}
	return d, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Document, error) {
	query := selectColumns + `
		WHERE user_id = $1
		ORDER BY array_position(ARRAY['identity', 'card', 'bank'], category)
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string, category workflow.DocumentCategory) (*models.Document, error) {
	d, err := scanDocument(r.db.QueryRowContext(ctx, selectColumns+` WHERE user_id = $1 AND category = $2`, userID, category))
	if err != nil {
		return nil, pgerr.Wrap(err)
	}
	return d, nil
}

func (r *PostgresRepository) Put(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	files := doc.Files
	if files == nil {
		files = []models.FileRef{}
	}
	payload, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("encode files: %w", err)
	}

	query := `
		INSERT INTO documents (id, user_id, category, files)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, category)
		DO UPDATE SET files = EXCLUDED.files, updated_at = now()
		RETURNING id, is_locked, is_approved, updated_at
	`
	err = r.db.QueryRowContext(ctx, query, doc.ID, doc.UserID, doc.Category, payload).
		Scan(&doc.ID, &doc.IsLocked, &doc.IsApproved, &doc.UpdatedAt)
	return pgerr.Wrap(err)
}

func (r *PostgresRepository) LockAll(ctx context.Context, userID string) error {
	query := `UPDATE documents SET is_locked = TRUE, updated_at = now() WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return pgerr.Wrap(err)
	}
	return nil
}

func (r *PostgresRepository) SetLocked(ctx context.Context, userID string, category workflow.DocumentCategory, locked bool) error {
	query := `UPDATE documents SET is_locked = $3, updated_at = now() WHERE user_id = $1 AND category = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, category, locked); err != nil {
		return pgerr.Wrap(err)
	}
	return nil
}
