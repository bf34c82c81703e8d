package profiles

import (
	"context"

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

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	query := `
		SELECT user_id, first_name, last_name, phone, street, house_number, postal_code, city, is_locked, updated_at
		FROM profiles
		WHERE user_id = $1
	`
	p := &models.Profile{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.FirstName, &p.LastName, &p.Phone, &p.Street, &p.HouseNumber, &p.PostalCode, &p.City, &p.IsLocked, &p.UpdatedAt)
	if err != nil {
		return nil, pgerr.Wrap(err)
	}
	return p, nil
}

func (r *PostgresRepository) Save(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, first_name, last_name, phone, street, house_number, postal_code, city)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id)
		DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			phone = EXCLUDED.phone,
			street = EXCLUDED.street,
			house_number = EXCLUDED.house_number,
			postal_code = EXCLUDED.postal_code,
			city = EXCLUDED.city,
			updated_at = now()
		RETURNING is_locked, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		p.UserID, p.FirstName, p.LastName, p.Phone, p.Street, p.HouseNumber, p.PostalCode, p.City,
	).Scan(&p.IsLocked, &p.UpdatedAt)
	return pgerr.Wrap(err)
}

func (r *PostgresRepository) SetLocked(ctx context.Context, userID string, locked bool) error {
	query := `UPDATE profiles SET is_locked = $2, updated_at = now() WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, locked); err != nil {
		return pgerr.Wrap(err)
	}
	return nil
}
